// Package repository defines the capability interfaces through which plugins
// reach platform data. The platform supplies the implementations; package
// memory and the SQLite backend ship reference ones for tests and standalone
// use.
//
// Lookups return (nil, nil) when the entity does not exist. Deletes report
// presence with a bool instead of failing on absence.
package repository

import (
	"context"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

// Pagination and payload defaults.
const (
	DefaultLimit         = 100
	DefaultSchemaVersion = "1.0"
)

// Permission names carried by PermissionError details.
const (
	PermissionExperimentWrite = "experiment:write"
)

// ListExperimentsOptions holds pagination and filters for ExperimentRepository.List.
// Nil or empty filters match everything.
type ListExperimentsOptions struct {
	Skip               int
	Limit              int
	Status             string
	ExperimentType     string
	Project            string
	CreatedBy          *int64
	ParentExperimentID *int64
	Search             string
}

// Normalize applies the default limit and clamps negative offsets.
func (o ListExperimentsOptions) Normalize() ListExperimentsOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Skip < 0 {
		o.Skip = 0
	}
	return o
}

// CreateExperimentInput carries the fields of a new experiment.
type CreateExperimentInput struct {
	Name               string
	ExperimentType     string
	CreatedBy          *int64
	ParentExperimentID *int64
	Project            *string
	Notes              *string
	Tags               map[string]any
}

// UpdateExperimentInput carries a partial update. Nil fields are left unchanged.
type UpdateExperimentInput struct {
	Name               *string
	Status             *string
	ExperimentType     *string
	ParentExperimentID *int64
	Project            *string
	Notes              *string
	Tags               map[string]any
}

// ExperimentRepository gives access to experiments. Analysis plugins receive
// a read-only view whose Create, Update and Delete fail with a
// PermissionError; experiment design plugins get full access.
type ExperimentRepository interface {
	GetByID(ctx context.Context, id int64) (*types.Experiment, error)
	// List returns one page of experiments and the total number of matches.
	List(ctx context.Context, opts ListExperimentsOptions) ([]types.Experiment, int, error)
	Create(ctx context.Context, in CreateExperimentInput) (*types.Experiment, error)
	// Update returns nil when the experiment does not exist.
	Update(ctx context.Context, id int64, in UpdateExperimentInput) (*types.Experiment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	HasDesignData(ctx context.Context, id int64) (bool, error)
}

// PluginDataRepository stores experiment design data (one record per
// experiment) and analysis results (one record per experiment and plugin).
// Both save methods are upserts.
type PluginDataRepository interface {
	// SaveExperimentData upserts by experiment id. An empty schemaVersion
	// means DefaultSchemaVersion.
	SaveExperimentData(ctx context.Context, experimentID int64, pluginID string, data map[string]any, schemaVersion string) (*types.DesignData, error)
	GetExperimentData(ctx context.Context, experimentID int64) (*types.DesignData, error)
	DeleteExperimentData(ctx context.Context, experimentID int64) (bool, error)

	// SaveAnalysisResult upserts by (experiment id, plugin id).
	SaveAnalysisResult(ctx context.Context, experimentID int64, pluginID string, result map[string]any) (*types.AnalysisResult, error)
	GetAnalysisResult(ctx context.Context, experimentID int64, pluginID string) (*types.AnalysisResult, error)
	GetAnalysisResults(ctx context.Context, experimentID int64) ([]types.AnalysisResult, error)
	DeleteAnalysisResult(ctx context.Context, experimentID int64, pluginID string) (bool, error)
}

// UserRepository looks up platform users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*types.User, error)
	GetByUsername(ctx context.Context, username string) (*types.User, error)
	List(ctx context.Context, skip, limit int) ([]types.User, error)
}

// PluginRoleRepository manages plugin-scoped roles. Platform admins bypass
// plugin role checks; that decision belongs to the platform.
type PluginRoleRepository interface {
	// GetRole reports false when the user has no role in the plugin.
	GetRole(ctx context.Context, pluginID string, userID int64) (string, bool, error)
	// SetRole inserts or replaces the user's role in the plugin.
	SetRole(ctx context.Context, pluginID string, userID int64, role string) (*types.UserPluginRole, error)
	RemoveRole(ctx context.Context, pluginID string, userID int64) (bool, error)
	ListPluginRoles(ctx context.Context, pluginID string) ([]types.UserPluginRole, error)
	ListUserRoles(ctx context.Context, userID int64) ([]types.UserPluginRole, error)
}

// MetadataTemplateRepository reads experiment metadata templates.
type MetadataTemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*types.MetadataTemplate, error)
	List(ctx context.Context) ([]types.MetadataTemplate, error)
	// GetDefault returns nil when no template is marked default.
	GetDefault(ctx context.Context) (*types.MetadataTemplate, error)
}

// ListArtifactsOptions filters AnalysisArtifactRepository.List.
type ListArtifactsOptions struct {
	PluginName   string
	ArtifactType string
	ExperimentID *int64
	Skip         int
	Limit        int
}

// CreateArtifactInput carries the fields of a new artifact.
type CreateArtifactInput struct {
	PluginName   string
	ArtifactType string
	Data         map[string]any
	ExperimentID *int64
}

// UpdateArtifactInput carries a partial artifact update. Nil fields are left
// unchanged.
type UpdateArtifactInput struct {
	ArtifactType *string
	Data         map[string]any
	ExperimentID *int64
}

// AnalysisArtifactRepository persists analysis outputs.
type AnalysisArtifactRepository interface {
	Create(ctx context.Context, in CreateArtifactInput) (*types.Artifact, error)
	GetByID(ctx context.Context, id string) (*types.Artifact, error)
	List(ctx context.Context, opts ListArtifactsOptions) ([]types.Artifact, error)
	// Update returns nil when the artifact does not exist.
	Update(ctx context.Context, id string, in UpdateArtifactInput) (*types.Artifact, error)
	Delete(ctx context.Context, id string) (bool, error)
}
