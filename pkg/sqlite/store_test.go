package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	var store types.KeyValueStore = sqlite.NewStore(types.StoreConfig{PluginName: "rfa", StorageDir: t.TempDir()})
	require.NoError(t, store.Initialize(ctx))
	defer store.Close()

	require.NoError(t, store.Set(ctx, "", "greeting", "hello"))
	v, err := store.Get(ctx, "", "greeting", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestNewPluginDataRepository(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewStore(types.StoreConfig{PluginName: "rfa", StorageDir: t.TempDir()})
	defer store.Close()

	pd, err := sqlite.NewPluginDataRepository(ctx, store)
	require.NoError(t, err)
	var repo repository.PluginDataRepository = pd

	_, err = repo.SaveAnalysisResult(ctx, 1, "rfa", map[string]any{"kd": 1.25})
	require.NoError(t, err)
	res, err := repo.GetAnalysisResult(ctx, 1, "rfa")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1.25, res.Result["kd"])
}
