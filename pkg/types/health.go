package types

import (
	"encoding/json"
	"maps"
	"time"
)

// HealthStatus is the coarse health of a plugin.
type HealthStatus string

// Health status values.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// HealthStatuses lists every status in severity order.
var HealthStatuses = []HealthStatus{HealthHealthy, HealthDegraded, HealthUnhealthy, HealthUnknown}

// PluginHealth is a health report produced by a plugin.
type PluginHealth struct {
	Status    HealthStatus
	Message   string
	Details   map[string]any
	CheckedAt time.Time
}

// NewPluginHealth returns a report with CheckedAt set to now (UTC).
func NewPluginHealth(status HealthStatus, message string) PluginHealth {
	return PluginHealth{Status: status, Message: message, CheckedAt: time.Now().UTC()}
}

// ToMap converts the report to {status, checked_at, message?, details?}.
func (h PluginHealth) ToMap() map[string]any {
	status := h.Status
	if status == "" {
		status = HealthUnknown
	}
	out := map[string]any{
		"status":     string(status),
		"checked_at": h.CheckedAt.Format(time.RFC3339Nano),
	}
	if h.Message != "" {
		out["message"] = h.Message
	}
	if len(h.Details) > 0 {
		out["details"] = maps.Clone(h.Details)
	}
	return out
}

// MarshalJSON encodes the ToMap shape.
func (h PluginHealth) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.ToMap())
}

// LifecycleHookResult is returned by hooks that may veto an operation.
type LifecycleHookResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// HookOK is the result of a hook that allows the operation.
func HookOK() LifecycleHookResult { return LifecycleHookResult{Success: true} }

// HookVeto is the result of a hook that blocks the operation.
func HookVeto(message string) LifecycleHookResult {
	return LifecycleHookResult{Success: false, Message: message}
}
