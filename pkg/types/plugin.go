// Plugin metadata and capability declarations.
package types

import "strings"

// PluginType is the plugin category. It controls write access to the
// experiment repository.
type PluginType string

// Plugin categories.
const (
	PluginTypeAnalysis         PluginType = "analysis"
	PluginTypeExperimentDesign PluginType = "experiment_design"
)

// Valid reports whether t is a known category.
func (t PluginType) Valid() bool {
	return t == PluginTypeAnalysis || t == PluginTypeExperimentDesign
}

// PluginCapabilities declares which platform features a plugin needs.
type PluginCapabilities struct {
	RequiresAuth              bool `json:"requires_auth"`
	RequiresDatabase          bool `json:"requires_database"`
	RequiresExperiments       bool `json:"requires_experiments"`
	RequiresLocalDatabase     bool `json:"requires_local_database"`
	SupportsExperimentLinking bool `json:"supports_experiment_linking"`
}

// PluginMetadata describes a plugin to the host.
type PluginMetadata struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description"`
	AnalysisType string             `json:"analysis_type"`
	RoutesPrefix string             `json:"routes_prefix"`
	PluginType   PluginType         `json:"plugin_type"`
	Capabilities PluginCapabilities `json:"capabilities"`

	Author   string `json:"author,omitempty"`
	Homepage string `json:"homepage,omitempty"`
	License  string `json:"license,omitempty"`
}

// Category returns the plugin type, defaulting to analysis when unset.
func (m PluginMetadata) Category() PluginType {
	if m.PluginType == "" {
		return PluginTypeAnalysis
	}
	return m.PluginType
}

// Validate checks the fields the host relies on for discovery and routing.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return NewValidationError("plugin name is required", "name", nil, nil)
	}
	if m.Version == "" {
		return NewValidationError("plugin version is required", "version", nil, nil)
	}
	if !strings.HasPrefix(m.RoutesPrefix, "/") {
		return NewValidationError("routes prefix must start with /", "routes_prefix", m.RoutesPrefix, nil)
	}
	if !m.Category().Valid() {
		return NewValidationError("unknown plugin type", "plugin_type", string(m.PluginType), nil)
	}
	return nil
}
