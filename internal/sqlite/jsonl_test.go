package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

func TestStore_Export(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Set(ctx, "settings", "b", 2))
	require.NoError(t, s.Set(ctx, "settings", "a", 1))
	require.NoError(t, s.Set(ctx, "", "c", "three"))

	var buf bytes.Buffer
	n, err := s.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var entries []types.Entry
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var e types.Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 3)
	assert.Equal(t, types.DefaultNamespace, entries[0].Namespace)
	assert.Equal(t, "a", entries[1].Key)
	assert.Equal(t, "b", entries[2].Key)
	assert.NotEmpty(t, entries[1].ID)

	buf.Reset()
	n, err = s.Export(ctx, &buf, "settings")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf.Reset()
	n, err = s.Export(ctx, &buf, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "empty namespace filter means the default namespace")
}

func TestStore_ImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	require.NoError(t, src.Set(ctx, "settings", "threshold", 0.5))
	require.NoError(t, src.Set(ctx, "cal", "curve", map[string]any{"slope": 2.25}))

	path := filepath.Join(t.TempDir(), "dump.jsonl")
	n, err := src.ExportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newTestStore(t)
	n, err = dst.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := dst.Get(ctx, "cal", "curve", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"slope": 2.25}, v)

	orig, err := src.Entry(ctx, "settings", "threshold")
	require.NoError(t, err)
	copied, err := dst.Entry(ctx, "settings", "threshold")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, copied.ID)
	assert.True(t, orig.CreatedAt.Equal(copied.CreatedAt))
}

func TestStore_ImportSkipsBadLines(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, WithClock(clock.now))
	require.NoError(t, s.Set(ctx, "", "kept", "old"))

	input := strings.Join([]string{
		`{"namespace":"","key":"kept","value":"new"}`,
		``,
		`not json`,
		`{"namespace":"x","value":1}`,
		`{"namespace":"x","key":"novalue"}`,
		`{"namespace":"x","key":"ok","value":[1,2]}`,
	}, "\n")

	clock.advance(time.Hour)
	n, err := s.Import(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := s.Get(ctx, "", "kept", nil)
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	e, err := s.Entry(ctx, "", "kept")
	require.NoError(t, err)
	assert.True(t, e.UpdatedAt.After(e.CreatedAt), "existing key keeps created_at")

	v, err = s.Get(ctx, "x", "ok", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)
}

func TestStore_ImportNotInitialized(t *testing.T) {
	s := NewStore(types.StoreConfig{PluginName: "rfa", StorageDir: t.TempDir()})
	_, err := s.Import(context.Background(), strings.NewReader(`{"key":"k","value":1}`))
	assertNotInitialized(t, err)
}
