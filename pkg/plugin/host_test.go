package plugin_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mld-platform/mld-sdk/pkg/memory"
	"github.com/mld-platform/mld-sdk/pkg/platform"
	"github.com/mld-platform/mld-sdk/pkg/plugin"
	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

func newTestHost(t *testing.T, opts ...plugin.HostOption) (*plugin.Host, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := plugin.NewMetrics()
	require.NoError(t, m.Register(reg))
	return plugin.NewHost(append(opts, plugin.WithMetrics(m))...), reg
}

func TestHost_LoadAndGet(t *testing.T) {
	ctx := context.Background()
	host, reg := newTestHost(t)

	inst, err := host.Load(ctx, newFake("rfa"))
	require.NoError(t, err)
	assert.True(t, inst.Ready())

	got, ok := host.Get("rfa")
	require.True(t, ok)
	assert.Same(t, inst, got)

	_, err = host.Load(ctx, newFake("rfa"))
	assert.ErrorIs(t, err, types.ErrConflict)

	_, err = host.Load(ctx, newFake("elisa"))
	require.NoError(t, err)
	names := []string{}
	for _, p := range host.Plugins() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"rfa", "elisa"}, names)

	// initializing and ready for each of the two plugins.
	assert.Equal(t, 4, testutil.CollectAndCount(reg, "mld_plugin_lifecycle_transitions_total"))
}

func TestHost_LoadFailureNotRegistered(t *testing.T) {
	ctx := context.Background()
	host, _ := newTestHost(t)

	broken := newFake("broken")
	broken.initErr = errBoom
	_, err := host.Load(ctx, broken)
	assert.ErrorIs(t, err, types.ErrLifecycle)
	_, ok := host.Get("broken")
	assert.False(t, ok)

	invalid := newFake("invalid")
	invalid.meta.RoutesPrefix = "no-slash"
	_, err = host.Load(ctx, invalid)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Empty(t, host.Plugins())
}

func TestHost_ContextFactory(t *testing.T) {
	ctx := context.Background()
	experiments := memory.NewExperimentRepository(nil)
	host, _ := newTestHost(t, plugin.WithContextFactory(func(meta types.PluginMetadata) platform.Context {
		return &platform.Static{Category: meta.Category(), Experiments: experiments}
	}))

	analysis := newFake("rfa")
	_, err := host.Load(ctx, analysis)
	require.NoError(t, err)
	require.NotNil(t, analysis.received)
	assert.False(t, analysis.IsStandalone())
	repo, ok := analysis.received.ExperimentRepository()
	require.True(t, ok)
	assert.True(t, repository.IsReadOnly(repo))

	design := newFake("plate-designer")
	design.meta.PluginType = types.PluginTypeExperimentDesign
	_, err = host.Load(ctx, design)
	require.NoError(t, err)
	repo, ok = design.received.ExperimentRepository()
	require.True(t, ok)
	assert.False(t, repository.IsReadOnly(repo))
}

func TestHost_BeforeExperimentSaveFirstVetoWins(t *testing.T) {
	ctx := context.Background()
	host, reg := newTestHost(t)

	ok := newFake("ok")
	first := newFake("first")
	first.veto = "missing controls"
	second := newFake("second")
	second.veto = "never asked"
	for _, p := range []*fakePlugin{ok, first, second} {
		_, err := host.Load(ctx, p)
		require.NoError(t, err)
	}

	res := host.BeforeExperimentSave(ctx, 42, map[string]any{"name": "x"})
	assert.False(t, res.Success)
	assert.Equal(t, "missing controls", res.Message)
	assert.Equal(t, "first", res.Data["plugin"])

	assert.Equal(t, 1, testutil.CollectAndCount(reg, "mld_plugin_hook_vetoes_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "mld_plugin_hook_vetoes_total", "first"))

	host.Unload(ctx, "first")
	host.Unload(ctx, "second")
	res = host.BeforeExperimentSave(ctx, 42, nil)
	assert.True(t, res.Success)
}

func counterValue(t *testing.T, reg *prometheus.Registry, metric, pluginName string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != metric {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "plugin" && l.GetValue() == pluginName {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("no %s series for plugin %s", metric, pluginName)
	return 0
}

func TestHost_CheckHealth(t *testing.T) {
	ctx := context.Background()
	host, reg := newTestHost(t)

	healthy := newFake("healthy")
	sick := newFake("sick")
	sick.healthErr = errBoom
	for _, p := range []*fakePlugin{healthy, sick} {
		_, err := host.Load(ctx, p)
		require.NoError(t, err)
	}

	report := host.CheckHealth(ctx)
	require.Len(t, report, 2)
	assert.Equal(t, types.HealthHealthy, report["healthy"].Status)
	assert.Equal(t, types.HealthUnhealthy, report["sick"].Status)

	// Four statuses per plugin.
	assert.Equal(t, 8, testutil.CollectAndCount(reg, "mld_plugin_health_status"))

	host.Unload(ctx, "sick")
	assert.Equal(t, 4, testutil.CollectAndCount(reg, "mld_plugin_health_status"))
}

func TestHost_FanOutJoinsErrors(t *testing.T) {
	ctx := context.Background()
	host, _ := newTestHost(t)

	good := newFake("good")
	bad := newFake("bad")
	bad.afterErr = errBoom
	for _, p := range []*fakePlugin{good, bad} {
		_, err := host.Load(ctx, p)
		require.NoError(t, err)
	}

	err := host.AfterExperimentSave(ctx, 1, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "plugin bad")

	require.NoError(t, host.ExperimentStatusChange(ctx, 1, "planned", "complete"))
	assert.Equal(t, []string{"planned->complete"}, good.statusLog)
	assert.Equal(t, []string{"planned->complete"}, bad.statusLog)
}

func TestHost_ShutdownAll(t *testing.T) {
	ctx := context.Background()
	host, _ := newTestHost(t)

	a, b := newFake("a"), newFake("b")
	b.shutdownPanic = true
	instA, err := host.Load(ctx, a)
	require.NoError(t, err)
	instB, err := host.Load(ctx, b)
	require.NoError(t, err)

	assert.NotPanics(t, func() { host.ShutdownAll(ctx) })
	assert.Empty(t, host.Plugins())
	assert.Equal(t, plugin.StateTerminated, instA.State())
	assert.Equal(t, plugin.StateTerminated, instB.State())
	assert.Equal(t, 1, a.shutdowns)
	assert.Equal(t, 1, b.shutdowns)

	assert.False(t, host.Unload(ctx, "a"))
}
