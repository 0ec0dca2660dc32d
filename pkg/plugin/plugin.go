// Package plugin defines the contract every MLD plugin implements and the
// host-side machinery that drives it: the lifecycle state machine
// (Instance) and a registry of loaded plugins (Host).
//
// A plugin must implement Plugin. Hooks are opt-in through the optional
// interfaces below; embedding Base provides safe defaults for all of them
// along with standalone store helpers.
package plugin

import (
	"context"
	"net/http"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Route is a handler mounted at Path under the plugin's routes prefix.
type Route struct {
	Path    string
	Handler http.Handler
}

// Plugin is the mandatory contract.
type Plugin interface {
	Metadata() types.PluginMetadata
	Routers() []Route

	// Initialize prepares the plugin. pc is nil in standalone mode. A
	// returned error aborts loading.
	Initialize(ctx context.Context, pc platform.Context) error

	// Shutdown releases resources. Failures must be logged, not returned.
	Shutdown(ctx context.Context)
}

// HealthChecker reports plugin health. An error is reported as unhealthy.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (types.PluginHealth, error)
}

// BeforeExperimentSaver runs before experiment data is persisted. A result
// with Success false vetoes the save.
type BeforeExperimentSaver interface {
	OnBeforeExperimentSave(ctx context.Context, experimentID int64, data map[string]any) (types.LifecycleHookResult, error)
}

// AfterExperimentSaver runs after experiment data was persisted.
type AfterExperimentSaver interface {
	OnAfterExperimentSave(ctx context.Context, experimentID int64, data map[string]any) error
}

// ExperimentStatusWatcher is notified of experiment status changes.
type ExperimentStatusWatcher interface {
	OnExperimentStatusChange(ctx context.Context, experimentID int64, oldStatus, newStatus string) error
}

// SharedTableProvider declares plugin-owned tables. They live in the
// platform's shared schema when integrated and in the standalone store
// otherwise.
type SharedTableProvider interface {
	SharedTables() []types.TableDefinition
}
