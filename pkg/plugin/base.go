package plugin

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/sqlite"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Base gives an embedding plugin default hook behavior, access to its
// platform context and a standalone store. Embedding Base does not satisfy
// Plugin on its own: Metadata, Routers, Initialize and Shutdown stay
// mandatory.
//
//	type RFA struct {
//	    plugin.Base
//	}
//
//	func (p *RFA) Initialize(ctx context.Context, pc platform.Context) error {
//	    p.SetContext(pc)
//	    if p.IsStandalone() {
//	        return p.SetupStandaloneStore(ctx, "rfa", "")
//	    }
//	    return nil
//	}
type Base struct {
	mu     sync.RWMutex
	pctx   platform.Context
	store  *sqlite.Store
	logger *slog.Logger
}

var (
	_ HealthChecker           = (*Base)(nil)
	_ BeforeExperimentSaver   = (*Base)(nil)
	_ AfterExperimentSaver    = (*Base)(nil)
	_ ExperimentStatusWatcher = (*Base)(nil)
)

// SetContext records the platform context received by Initialize. nil
// means standalone.
func (b *Base) SetContext(pc platform.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pctx = pc
}

// Context returns the platform context, if the plugin runs integrated.
func (b *Base) Context() (platform.Context, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pctx, b.pctx != nil
}

// IsStandalone reports whether the plugin runs without a platform.
func (b *Base) IsStandalone() bool {
	_, ok := b.Context()
	return !ok
}

// CheckHealth reports healthy.
func (b *Base) CheckHealth(context.Context) (types.PluginHealth, error) {
	return types.NewPluginHealth(types.HealthHealthy, ""), nil
}

// OnBeforeExperimentSave allows the save.
func (b *Base) OnBeforeExperimentSave(context.Context, int64, map[string]any) (types.LifecycleHookResult, error) {
	return types.HookOK(), nil
}

// OnAfterExperimentSave does nothing.
func (b *Base) OnAfterExperimentSave(context.Context, int64, map[string]any) error {
	return nil
}

// OnExperimentStatusChange does nothing.
func (b *Base) OnExperimentStatusChange(context.Context, int64, string, string) error {
	return nil
}

// SetupStandaloneStore opens the plugin's local store, creating tables.
// storageDir overrides the per-user default. It does nothing when the
// store is already open.
func (b *Base) SetupStandaloneStore(ctx context.Context, pluginName, storageDir string, tables ...types.TableDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store != nil && b.store.IsInitialized() {
		return nil
	}

	store := sqlite.NewStore(types.StoreConfig{PluginName: pluginName, StorageDir: storageDir},
		sqlite.WithLogger(b.loggerLocked()))
	if err := store.Initialize(ctx, tables...); err != nil {
		return err
	}
	b.store = store
	return nil
}

// TeardownStandaloneStore closes the local store. It is safe to call when
// no store was set up.
func (b *Base) TeardownStandaloneStore() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	return err
}

// StandaloneStore returns the local store set up by SetupStandaloneStore.
func (b *Base) StandaloneStore() (*sqlite.Store, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store, b.store != nil
}

// DBSession runs fn in a transaction on the platform's shared schema when
// integrated, or on the standalone store otherwise.
func (b *Base) DBSession(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	pc, store := b.pctx, b.store
	b.mu.RUnlock()

	if pc != nil {
		return pc.SharedSession(ctx, fn)
	}
	if store == nil {
		return types.NewConfigurationError(
			"standalone store not initialized; call SetupStandaloneStore in Initialize", "local_store", nil)
	}
	return store.Session(ctx, fn)
}

// Logger returns the plugin logger, slog.Default() unless SetLogger was
// called.
func (b *Base) Logger() *slog.Logger {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loggerLocked()
}

// SetLogger replaces the plugin logger.
func (b *Base) SetLogger(l *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = l
}

func (b *Base) loggerLocked() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}
