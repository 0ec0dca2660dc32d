package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMetadata() PluginMetadata {
	return PluginMetadata{
		Name:         "rfa",
		Version:      "1.2.0",
		Description:  "Relative flux analysis",
		AnalysisType: "metabolomics",
		RoutesPrefix: "/rfa",
	}
}

func TestPluginMetadata_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PluginMetadata)
		wantErr bool
		field   string
	}{
		{name: "valid", mutate: func(*PluginMetadata) {}},
		{name: "missing name", mutate: func(m *PluginMetadata) { m.Name = "" }, wantErr: true, field: "name"},
		{name: "missing version", mutate: func(m *PluginMetadata) { m.Version = "" }, wantErr: true, field: "version"},
		{name: "prefix without slash", mutate: func(m *PluginMetadata) { m.RoutesPrefix = "rfa" }, wantErr: true, field: "routes_prefix"},
		{name: "unknown type", mutate: func(m *PluginMetadata) { m.PluginType = "sidecar" }, wantErr: true, field: "plugin_type"},
		{name: "design type", mutate: func(m *PluginMetadata) { m.PluginType = PluginTypeExperimentDesign }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMetadata()
			tt.mutate(&m)
			err := m.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			pe, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestPluginMetadata_CategoryDefaultsToAnalysis(t *testing.T) {
	m := validMetadata()
	assert.Equal(t, PluginTypeAnalysis, m.Category())
	m.PluginType = PluginTypeExperimentDesign
	assert.Equal(t, PluginTypeExperimentDesign, m.Category())
}

func TestPluginHealth_ToMap(t *testing.T) {
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	h := PluginHealth{Status: HealthHealthy, CheckedAt: checked}
	assert.Equal(t, map[string]any{
		"status":     "healthy",
		"checked_at": "2026-03-01T12:00:00Z",
	}, h.ToMap())

	h = PluginHealth{
		Status:    HealthDegraded,
		Message:   "instrument queue backed up",
		Details:   map[string]any{"queued": 12},
		CheckedAt: checked,
	}
	m := h.ToMap()
	assert.Equal(t, "degraded", m["status"])
	assert.Equal(t, "instrument queue backed up", m["message"])
	assert.Equal(t, map[string]any{"queued": 12}, m["details"])
}

func TestPluginHealth_MarshalJSON(t *testing.T) {
	h := NewPluginHealth(HealthUnhealthy, "db down")
	data, err := json.Marshal(h)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "unhealthy", out["status"])
	assert.Equal(t, "db down", out["message"])
	assert.NotContains(t, out, "details")
	assert.NotEmpty(t, out["checked_at"])
}

func TestPluginHealth_EmptyStatusIsUnknown(t *testing.T) {
	assert.Equal(t, "unknown", PluginHealth{}.ToMap()["status"])
}

func TestHookResults(t *testing.T) {
	assert.True(t, HookOK().Success)
	veto := HookVeto("plate layout incomplete")
	assert.False(t, veto.Success)
	assert.Equal(t, "plate layout incomplete", veto.Message)
}
