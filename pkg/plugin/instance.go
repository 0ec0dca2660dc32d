package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// State is a lifecycle state.
type State string

// Lifecycle states, in order.
const (
	StateConstructed  State = "constructed"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateShuttingDown State = "shutting_down"
	StateTerminated   State = "terminated"
)

// Lifecycle phases named in LifecycleError details.
const (
	PhaseInitialize   = "initialize"
	PhaseShutdown     = "shutdown"
	PhaseHealth       = "check_health"
	PhaseBeforeSave   = "before_experiment_save"
	PhaseAfterSave    = "after_experiment_save"
	PhaseStatusChange = "experiment_status_change"
)

// Instance drives one plugin through
// constructed → initializing → ready → shutting_down → terminated.
// Hooks run only while ready.
type Instance struct {
	mu      sync.RWMutex
	plugin  Plugin
	name    string
	state   State
	logger  *slog.Logger
	observe func(name string, s State)
}

// InstanceOption configures an Instance.
type InstanceOption func(*Instance)

// WithInstanceLogger sets the logger used for shutdown failures and
// recovered panics.
func WithInstanceLogger(l *slog.Logger) InstanceOption {
	return func(i *Instance) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithObserver registers fn to be called after every state transition.
func WithObserver(fn func(name string, s State)) InstanceOption {
	return func(i *Instance) { i.observe = fn }
}

// NewInstance wraps p in the constructed state.
func NewInstance(p Plugin, opts ...InstanceOption) *Instance {
	i := &Instance{
		plugin: p,
		name:   p.Metadata().Name,
		state:  StateConstructed,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Plugin returns the wrapped plugin.
func (i *Instance) Plugin() Plugin { return i.plugin }

// Name returns the plugin name.
func (i *Instance) Name() string { return i.name }

// State returns the current state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Ready reports whether hooks may run.
func (i *Instance) Ready() bool { return i.State() == StateReady }

func (i *Instance) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
	if i.observe != nil {
		i.observe(i.name, s)
	}
}

// Initialize runs the plugin's Initialize with pc, nil for standalone. On
// success the instance is ready. A failure or panic terminates it and is
// returned as a LifecycleError with phase initialize.
func (i *Instance) Initialize(ctx context.Context, pc platform.Context) error {
	i.mu.Lock()
	if i.state != StateConstructed {
		s := i.state
		i.mu.Unlock()
		return types.NewLifecycleError(fmt.Sprintf("plugin %s is %s and cannot be initialized", i.name, s),
			PhaseInitialize, i.name, nil)
	}
	i.state = StateInitializing
	i.mu.Unlock()
	if i.observe != nil {
		i.observe(i.name, StateInitializing)
	}

	err := i.guard(PhaseInitialize, func() error { return i.plugin.Initialize(ctx, pc) })
	if err != nil {
		i.setState(StateTerminated)
		if errors.Is(err, types.ErrLifecycle) {
			return err
		}
		return types.NewLifecycleError(fmt.Sprintf("plugin %s failed to initialize", i.name),
			PhaseInitialize, i.name, nil).WithCause(err)
	}

	i.setState(StateReady)
	i.logger.Info("plugin ready", "plugin", i.name, "standalone", pc == nil)
	return nil
}

// Shutdown runs the plugin's Shutdown and terminates the instance. It never
// fails: panics are recovered and logged. Calling it on an instance that is
// not ready only terminates it.
func (i *Instance) Shutdown(ctx context.Context) {
	i.mu.Lock()
	prev := i.state
	switch prev {
	case StateTerminated, StateShuttingDown:
		i.mu.Unlock()
		return
	case StateReady:
		i.state = StateShuttingDown
	default:
		i.state = StateTerminated
	}
	i.mu.Unlock()

	if prev != StateReady {
		if i.observe != nil {
			i.observe(i.name, StateTerminated)
		}
		return
	}
	if i.observe != nil {
		i.observe(i.name, StateShuttingDown)
	}

	if err := i.guard(PhaseShutdown, func() error { i.plugin.Shutdown(ctx); return nil }); err != nil {
		i.logger.Error("plugin shutdown failed", "plugin", i.name, "error", err)
	}
	i.setState(StateTerminated)
	i.logger.Info("plugin terminated", "plugin", i.name)
}

// CheckHealth asks the plugin for its health. Plugins without a health
// check are healthy. A failing or panicking check reports unhealthy.
func (i *Instance) CheckHealth(ctx context.Context) (types.PluginHealth, error) {
	if err := i.requireReady(PhaseHealth); err != nil {
		return types.PluginHealth{}, err
	}
	hc, ok := i.plugin.(HealthChecker)
	if !ok {
		return types.NewPluginHealth(types.HealthHealthy, ""), nil
	}

	var h types.PluginHealth
	err := i.guard(PhaseHealth, func() error {
		var err error
		h, err = hc.CheckHealth(ctx)
		return err
	})
	if err != nil {
		i.logger.Warn("plugin health check failed", "plugin", i.name, "error", err)
		h = types.NewPluginHealth(types.HealthUnhealthy, err.Error())
	}
	if h.Status == "" {
		h.Status = types.HealthUnknown
	}
	if h.CheckedAt.IsZero() {
		h.CheckedAt = types.NewPluginHealth(h.Status, "").CheckedAt
	}
	return h, nil
}

// BeforeExperimentSave runs the veto hook. A hook error or panic vetoes the
// save.
func (i *Instance) BeforeExperimentSave(ctx context.Context, experimentID int64, data map[string]any) (types.LifecycleHookResult, error) {
	if err := i.requireReady(PhaseBeforeSave); err != nil {
		return types.LifecycleHookResult{}, err
	}
	hook, ok := i.plugin.(BeforeExperimentSaver)
	if !ok {
		return types.HookOK(), nil
	}

	var res types.LifecycleHookResult
	err := i.guard(PhaseBeforeSave, func() error {
		var err error
		res, err = hook.OnBeforeExperimentSave(ctx, experimentID, data)
		return err
	})
	if err != nil {
		i.logger.Warn("plugin before-save hook failed", "plugin", i.name, "experiment_id", experimentID, "error", err)
		return types.HookVeto(err.Error()), nil
	}
	return res, nil
}

// AfterExperimentSave runs the after-save hook and returns its error.
func (i *Instance) AfterExperimentSave(ctx context.Context, experimentID int64, data map[string]any) error {
	if err := i.requireReady(PhaseAfterSave); err != nil {
		return err
	}
	hook, ok := i.plugin.(AfterExperimentSaver)
	if !ok {
		return nil
	}
	return i.guard(PhaseAfterSave, func() error {
		return hook.OnAfterExperimentSave(ctx, experimentID, data)
	})
}

// ExperimentStatusChange runs the status hook and returns its error.
func (i *Instance) ExperimentStatusChange(ctx context.Context, experimentID int64, oldStatus, newStatus string) error {
	if err := i.requireReady(PhaseStatusChange); err != nil {
		return err
	}
	hook, ok := i.plugin.(ExperimentStatusWatcher)
	if !ok {
		return nil
	}
	return i.guard(PhaseStatusChange, func() error {
		return hook.OnExperimentStatusChange(ctx, experimentID, oldStatus, newStatus)
	})
}

func (i *Instance) requireReady(phase string) error {
	if s := i.State(); s != StateReady {
		return types.NewLifecycleError(fmt.Sprintf("plugin %s is %s, not ready", i.name, s), phase, i.name,
			map[string]any{"state": string(s)})
	}
	return nil
}

// guard runs fn, converting a panic into a LifecycleError.
func (i *Instance) guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("plugin panicked", "plugin", i.name, "phase", phase, "panic", r)
			err = types.NewLifecycleError(fmt.Sprintf("plugin %s panicked during %s: %v", i.name, phase, r),
				phase, i.name, nil)
		}
	}()
	return fn()
}
