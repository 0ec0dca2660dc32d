// Data models exchanged between the platform and plugins.
package types

import "time"

// Experiment is a lab experiment owned by the platform.
type Experiment struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	ExperimentType     string         `json:"experiment_type"`
	Status             string         `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	CreatedBy          *int64         `json:"created_by,omitempty"`
	ParentExperimentID *int64         `json:"parent_experiment_id,omitempty"`
	Project            *string        `json:"project,omitempty"`
	Notes              *string        `json:"notes,omitempty"`
	Tags               map[string]any `json:"tags,omitempty"`
	CustomMetadata     map[string]any `json:"custom_metadata,omitempty"`
}

// DesignData is the experiment design payload owned by an experiment design
// plugin. There is at most one per experiment.
type DesignData struct {
	ID            int64          `json:"id"`
	ExperimentID  int64          `json:"experiment_id"`
	PluginID      string         `json:"plugin_id"`
	Data          map[string]any `json:"data"`
	SchemaVersion string         `json:"schema_version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PluginData is the older name of DesignData.
type PluginData = DesignData

// AnalysisResult is the output of an analysis plugin for one experiment.
// There is at most one per (experiment, plugin) pair.
type AnalysisResult struct {
	ID           int64          `json:"id"`
	ExperimentID int64          `json:"experiment_id"`
	PluginID     string         `json:"plugin_id"`
	Result       map[string]any `json:"result"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// User is a platform user. Plugins only read users.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     *string   `json:"email,omitempty"`
	Shortname *string   `json:"shortname,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
}

// UserPluginRole assigns a plugin-scoped role to a user, independent of the
// user's platform-wide role.
type UserPluginRole struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	PluginID  string    `json:"plugin_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Artifact is a persisted analysis output such as a calibration curve or a
// processed result set.
type Artifact struct {
	ID           string         `json:"id"`
	PluginName   string         `json:"plugin_name"`
	ArtifactType string         `json:"artifact_type"`
	Data         map[string]any `json:"data"`
	ExperimentID *int64         `json:"experiment_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TemplateField is one field of a metadata template.
type TemplateField struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// MetadataTemplate describes the custom metadata fields offered when
// creating an experiment.
type MetadataTemplate struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Fields    []TemplateField `json:"fields"`
	CreatedBy *int64          `json:"created_by,omitempty"`
	IsDefault bool            `json:"is_default"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PlatformConfig holds platform settings. Its structure varies by platform
// version; common top-level keys are auth, database, features and plugins.
type PlatformConfig map[string]any
