// Package sqlite provides the public API for the embedded local store.
// It exposes the factories while keeping the implementation internal.
package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/mld-platform/mld-sdk/internal/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Store is the SQLite-backed types.KeyValueStore. Beyond the interface it
// offers Entry, Namespaces, DB, Path, IsInitialized and JSON-lines
// export and import.
type Store = sqlite.Store

// PluginDataRepository is a repository.PluginDataRepository kept in a
// Store.
type PluginDataRepository = sqlite.PluginDataRepository

// Option configures a Store.
type Option = sqlite.Option

// NewStore creates a store for config. The store is not open; call
// Initialize before use.
//
// Example:
//
//	store := sqlite.NewStore(types.StoreConfig{PluginName: "rfa"})
//	if err := store.Initialize(ctx); err != nil {
//	    return err
//	}
//	defer store.Close()
//	err := store.Set(ctx, "settings", "threshold", 0.5)
func NewStore(config types.StoreConfig, opts ...Option) *Store {
	return sqlite.NewStore(config, opts...)
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return sqlite.WithLogger(l)
}

// WithClock replaces the store's time source.
func WithClock(now func() time.Time) Option {
	return sqlite.WithClock(now)
}

// NewPluginDataRepository returns a plugin data repository in store,
// creating its tables and opening the store if needed.
func NewPluginDataRepository(ctx context.Context, store *Store) (*PluginDataRepository, error) {
	return sqlite.NewPluginDataRepository(ctx, store)
}
