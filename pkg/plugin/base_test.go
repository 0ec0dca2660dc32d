package plugin_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

var readingsTable = types.TableDefinition{
	Name:    "readings",
	Columns: "id INTEGER PRIMARY KEY AUTOINCREMENT, well TEXT NOT NULL, value REAL",
	Indexes: []string{"CREATE INDEX IF NOT EXISTS idx_readings_well ON readings(well)"},
}

func TestBase_StandaloneStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := newFake("rfa")

	_, ok := p.StandaloneStore()
	assert.False(t, ok)
	err := p.DBSession(ctx, func(*sql.Tx) error { return nil })
	assert.ErrorIs(t, err, types.ErrConfiguration)

	require.NoError(t, p.SetupStandaloneStore(ctx, "rfa", dir, readingsTable))
	store, ok := p.StandaloneStore()
	require.True(t, ok)
	require.NoError(t, p.SetupStandaloneStore(ctx, "rfa", dir, readingsTable))
	again, _ := p.StandaloneStore()
	assert.Same(t, store, again, "setup is idempotent")

	_, err = os.Stat(filepath.Join(dir, types.DefaultDBFilename))
	require.NoError(t, err)

	err = p.DBSession(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO readings (well, value) VALUES (?, ?)`, "A1", 0.42)
		return err
	})
	require.NoError(t, err)

	db, err := store.DB()
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, p.TeardownStandaloneStore())
	require.NoError(t, p.TeardownStandaloneStore())
	assert.False(t, store.IsInitialized())
}

func TestBase_DBSessionUsesPlatform(t *testing.T) {
	ctx := context.Background()
	shared := sqlite.NewStore(types.StoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, shared.Initialize(ctx, readingsTable))
	t.Cleanup(func() { _ = shared.Close() })

	p := newFake("rfa")
	p.SetContext(&platform.Static{Sessions: shared})
	assert.False(t, p.IsStandalone())
	pc, ok := p.Context()
	require.True(t, ok)
	assert.NotNil(t, pc)

	err := p.DBSession(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO readings (well, value) VALUES ('B2', 1.5)`)
		return err
	})
	require.NoError(t, err)

	db, err := shared.DB()
	require.NoError(t, err)
	var well string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT well FROM readings`).Scan(&well))
	assert.Equal(t, "B2", well)
}

func TestBase_Defaults(t *testing.T) {
	ctx := context.Background()
	var b fakePlugin

	h, err := b.Base.CheckHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.HealthHealthy, h.Status)

	res, err := b.Base.OnBeforeExperimentSave(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NoError(t, b.Base.OnAfterExperimentSave(ctx, 1, nil))
	assert.NoError(t, b.Base.OnExperimentStatusChange(ctx, 1, "planned", "running"))

	assert.NotNil(t, b.Logger())
	assert.True(t, b.IsStandalone())
}
