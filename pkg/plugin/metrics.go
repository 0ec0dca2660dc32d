package plugin

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Metrics holds the collectors a Host updates.
type Metrics struct {
	transitions  *prometheus.CounterVec
	health       *prometheus.GaugeVec
	vetoes       *prometheus.CounterVec
	hookDuration *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mld_plugin_lifecycle_transitions_total",
			Help: "Number of plugin lifecycle transitions by target state",
		}, []string{"plugin", "state"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mld_plugin_health_status",
			Help: "Last reported plugin health; 1 for the current status, 0 otherwise",
		}, []string{"plugin", "status"}),
		vetoes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mld_plugin_hook_vetoes_total",
			Help: "Number of experiment saves vetoed by a plugin",
		}, []string{"plugin"}),
		hookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mld_plugin_hook_duration_seconds",
			Help:    "Duration of plugin hook calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"plugin", "hook"}),
	}
}

// Register adds every collector to registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	return errors.Join(
		registerer.Register(m.transitions),
		registerer.Register(m.health),
		registerer.Register(m.vetoes),
		registerer.Register(m.hookDuration),
	)
}

// MustRegister is Register that panics on failure.
func (m *Metrics) MustRegister(registerer prometheus.Registerer) {
	if err := m.Register(registerer); err != nil {
		panic(err)
	}
}

func (m *Metrics) observeTransition(name string, s State) {
	m.transitions.WithLabelValues(name, string(s)).Inc()
}

func (m *Metrics) observeHealth(name string, status types.HealthStatus) {
	for _, s := range types.HealthStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.health.WithLabelValues(name, string(s)).Set(v)
	}
}

func (m *Metrics) observeVeto(name string) {
	m.vetoes.WithLabelValues(name).Inc()
}

func (m *Metrics) observeHook(name, hook string, start time.Time) {
	m.hookDuration.WithLabelValues(name, hook).Observe(time.Since(start).Seconds())
}

func (m *Metrics) forget(name string) {
	m.health.DeletePartialMatch(prometheus.Labels{"plugin": name})
}
