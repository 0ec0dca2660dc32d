package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// ContextFactory builds the platform context handed to a plugin. Returning
// nil loads the plugin in standalone mode.
type ContextFactory func(meta types.PluginMetadata) platform.Context

// Host loads plugins, keeps the ready ones and fans platform events out to
// them in load order.
type Host struct {
	mu         sync.RWMutex
	order      []string
	instances  map[string]*Instance
	contextFor ContextFactory
	logger     *slog.Logger
	metrics    *Metrics
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithContextFactory sets how plugin contexts are built. Without it every
// plugin is loaded standalone.
func WithContextFactory(f ContextFactory) HostOption {
	return func(h *Host) { h.contextFor = f }
}

// WithHostLogger sets the host logger.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the collectors the host updates.
func WithMetrics(m *Metrics) HostOption {
	return func(h *Host) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewHost returns an empty host. Without WithMetrics it updates private,
// unregistered collectors.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		instances: make(map[string]*Instance),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics()
	}
	return h
}

// Load validates p's metadata, initializes it and registers it once it is
// ready. A plugin that fails to initialize is not registered. Names must be
// unique.
func (h *Host) Load(ctx context.Context, p Plugin) (*Instance, error) {
	meta := p.Metadata()
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if _, ok := h.Get(meta.Name); ok {
		return nil, errDuplicate(meta.Name)
	}

	inst := NewInstance(p,
		WithInstanceLogger(h.logger.With("plugin", meta.Name)),
		WithObserver(h.metrics.observeTransition))

	var pc platform.Context
	if h.contextFor != nil {
		pc = h.contextFor(meta)
	}
	if err := inst.Initialize(ctx, pc); err != nil {
		h.logger.Error("plugin failed to load", "plugin", meta.Name, "error", err)
		return nil, err
	}

	h.mu.Lock()
	if _, ok := h.instances[meta.Name]; ok {
		h.mu.Unlock()
		inst.Shutdown(ctx)
		return nil, errDuplicate(meta.Name)
	}
	h.instances[meta.Name] = inst
	h.order = append(h.order, meta.Name)
	h.mu.Unlock()

	h.logger.Info("plugin loaded", "plugin", meta.Name, "version", meta.Version,
		"type", string(meta.Category()), "standalone", pc == nil)
	return inst, nil
}

func errDuplicate(name string) error {
	return types.NewConflictError(fmt.Sprintf("plugin %q is already loaded", name), "plugin", "name",
		map[string]any{"plugin_name": name})
}

// Get returns a loaded plugin by name.
func (h *Host) Get(name string) (*Instance, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inst, ok := h.instances[name]
	return inst, ok
}

// Plugins returns the loaded plugins in load order.
func (h *Host) Plugins() []*Instance {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Instance, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.instances[name])
	}
	return out
}

// Unload shuts a plugin down and removes it. It reports whether the plugin
// was loaded.
func (h *Host) Unload(ctx context.Context, name string) bool {
	h.mu.Lock()
	inst, ok := h.instances[name]
	if ok {
		delete(h.instances, name)
		h.order = slices.DeleteFunc(h.order, func(n string) bool { return n == name })
	}
	h.mu.Unlock()
	if !ok {
		return false
	}
	inst.Shutdown(ctx)
	h.metrics.forget(name)
	return true
}

// ShutdownAll shuts every plugin down in reverse load order and empties
// the host.
func (h *Host) ShutdownAll(ctx context.Context) {
	h.mu.Lock()
	order := h.order
	instances := h.instances
	h.order = nil
	h.instances = make(map[string]*Instance)
	h.mu.Unlock()

	for _, name := range slices.Backward(order) {
		instances[name].Shutdown(ctx)
		h.metrics.forget(name)
	}
}

// CheckHealth collects every plugin's health, keyed by name.
func (h *Host) CheckHealth(ctx context.Context) map[string]types.PluginHealth {
	out := make(map[string]types.PluginHealth)
	for _, inst := range h.Plugins() {
		start := time.Now()
		health, err := inst.CheckHealth(ctx)
		h.metrics.observeHook(inst.Name(), PhaseHealth, start)
		if err != nil {
			health = types.NewPluginHealth(types.HealthUnknown, err.Error())
		}
		h.metrics.observeHealth(inst.Name(), health.Status)
		out[inst.Name()] = health
	}
	return out
}

// BeforeExperimentSave asks every plugin in load order. The first veto
// stops the fan-out and is returned with the vetoing plugin's name in
// Data["plugin"]. The caller must not persist a vetoed save.
func (h *Host) BeforeExperimentSave(ctx context.Context, experimentID int64, data map[string]any) types.LifecycleHookResult {
	for _, inst := range h.Plugins() {
		if !inst.Ready() {
			continue
		}
		start := time.Now()
		res, err := inst.BeforeExperimentSave(ctx, experimentID, data)
		h.metrics.observeHook(inst.Name(), PhaseBeforeSave, start)
		if err != nil {
			h.logger.Warn("before-save hook skipped", "plugin", inst.Name(), "error", err)
			continue
		}
		if !res.Success {
			h.metrics.observeVeto(inst.Name())
			h.logger.Info("experiment save vetoed", "plugin", inst.Name(),
				"experiment_id", experimentID, "reason", res.Message)
			res.Data = maps.Clone(res.Data)
			if res.Data == nil {
				res.Data = make(map[string]any)
			}
			res.Data["plugin"] = inst.Name()
			return res
		}
	}
	return types.HookOK()
}

// AfterExperimentSave notifies every plugin and joins their errors.
func (h *Host) AfterExperimentSave(ctx context.Context, experimentID int64, data map[string]any) error {
	return h.fanOut(PhaseAfterSave, func(inst *Instance) error {
		return inst.AfterExperimentSave(ctx, experimentID, data)
	})
}

// ExperimentStatusChange notifies every plugin and joins their errors.
func (h *Host) ExperimentStatusChange(ctx context.Context, experimentID int64, oldStatus, newStatus string) error {
	return h.fanOut(PhaseStatusChange, func(inst *Instance) error {
		return inst.ExperimentStatusChange(ctx, experimentID, oldStatus, newStatus)
	})
}

func (h *Host) fanOut(hook string, call func(*Instance) error) error {
	var errs []error
	for _, inst := range h.Plugins() {
		if !inst.Ready() {
			continue
		}
		start := time.Now()
		err := call(inst)
		h.metrics.observeHook(inst.Name(), hook, start)
		if err != nil {
			h.logger.Warn("plugin hook failed", "plugin", inst.Name(), "hook", hook, "error", err)
			errs = append(errs, fmt.Errorf("plugin %s: %w", inst.Name(), err))
		}
	}
	return errors.Join(errs...)
}
