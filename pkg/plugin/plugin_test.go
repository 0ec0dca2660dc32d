package plugin_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/plugin"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// fakePlugin embeds Base and overrides hooks according to its fields.
type fakePlugin struct {
	plugin.Base

	meta      types.PluginMetadata
	initErr   error
	initPanic bool

	shutdowns     int
	shutdownPanic bool

	health      types.PluginHealth
	healthErr   error
	healthPanic bool

	veto      string
	vetoErr   error
	afterErr  error
	statusLog []string
	received  platform.Context
}

var _ plugin.Plugin = (*fakePlugin)(nil)

func newFake(name string) *fakePlugin {
	return &fakePlugin{meta: types.PluginMetadata{
		Name:         name,
		Version:      "1.0.0",
		Description:  "test plugin",
		AnalysisType: "binding",
		RoutesPrefix: "/" + name,
		PluginType:   types.PluginTypeAnalysis,
	}}
}

func (p *fakePlugin) Metadata() types.PluginMetadata { return p.meta }

func (p *fakePlugin) Routers() []plugin.Route {
	return []plugin.Route{{
		Path: "/results",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(p.meta.Name + ":" + r.URL.Path))
		}),
	}}
}

func (p *fakePlugin) Initialize(_ context.Context, pc platform.Context) error {
	if p.initPanic {
		panic("init exploded")
	}
	p.received = pc
	p.SetContext(pc)
	return p.initErr
}

func (p *fakePlugin) Shutdown(context.Context) {
	p.shutdowns++
	if p.shutdownPanic {
		panic("shutdown exploded")
	}
}

func (p *fakePlugin) CheckHealth(ctx context.Context) (types.PluginHealth, error) {
	if p.healthPanic {
		panic("health exploded")
	}
	if p.healthErr != nil {
		return types.PluginHealth{}, p.healthErr
	}
	if p.health.Status == "" {
		return p.Base.CheckHealth(ctx)
	}
	return p.health, nil
}

func (p *fakePlugin) OnBeforeExperimentSave(_ context.Context, _ int64, _ map[string]any) (types.LifecycleHookResult, error) {
	if p.vetoErr != nil {
		return types.LifecycleHookResult{}, p.vetoErr
	}
	if p.veto != "" {
		return types.HookVeto(p.veto), nil
	}
	return types.HookOK(), nil
}

func (p *fakePlugin) OnAfterExperimentSave(context.Context, int64, map[string]any) error {
	return p.afterErr
}

func (p *fakePlugin) OnExperimentStatusChange(_ context.Context, _ int64, oldStatus, newStatus string) error {
	p.statusLog = append(p.statusLog, oldStatus+"->"+newStatus)
	return nil
}

// minimalPlugin implements only the mandatory members.
type minimalPlugin struct{}

func (minimalPlugin) Metadata() types.PluginMetadata {
	return types.PluginMetadata{Name: "minimal", Version: "0.1.0", RoutesPrefix: "/minimal"}
}
func (minimalPlugin) Routers() []plugin.Route                          { return nil }
func (minimalPlugin) Initialize(context.Context, platform.Context) error { return nil }
func (minimalPlugin) Shutdown(context.Context)                         {}

var errBoom = errors.New("boom")
