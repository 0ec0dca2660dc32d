package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// AnalysisArtifactRepository is an in-memory
// repository.AnalysisArtifactRepository. Artifact ids are UUID v7, so
// ordering by id follows creation order.
type AnalysisArtifactRepository struct {
	mu        sync.RWMutex
	artifacts map[string]types.Artifact
}

var _ repository.AnalysisArtifactRepository = (*AnalysisArtifactRepository)(nil)

// NewAnalysisArtifactRepository returns an empty repository.
func NewAnalysisArtifactRepository() *AnalysisArtifactRepository {
	return &AnalysisArtifactRepository{artifacts: make(map[string]types.Artifact)}
}

// Create stores a new artifact.
func (r *AnalysisArtifactRepository) Create(_ context.Context, in repository.CreateArtifactInput) (*types.Artifact, error) {
	if in.PluginName == "" {
		return nil, types.NewValidationError("plugin name is required", "plugin_name", nil, nil)
	}
	if in.ArtifactType == "" {
		return nil, types.NewValidationError("artifact type is required", "artifact_type", nil, nil)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, types.NewRepositoryError("generate artifact id", "create", "artifact", nil).WithCause(err)
	}
	now := time.Now().UTC()
	a := types.Artifact{
		ID:           id.String(),
		PluginName:   in.PluginName,
		ArtifactType: in.ArtifactType,
		Data:         cloneData(in.Data),
		ExperimentID: in.ExperimentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	r.artifacts[a.ID] = a
	r.mu.Unlock()

	a.Data = cloneData(a.Data)
	return &a, nil
}

// GetByID returns the artifact or nil.
func (r *AnalysisArtifactRepository) GetByID(_ context.Context, id string) (*types.Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok {
		return nil, nil
	}
	a.Data = cloneData(a.Data)
	return &a, nil
}

// List filters artifacts and returns them in creation order.
func (r *AnalysisArtifactRepository) List(_ context.Context, opts repository.ListArtifactsOptions) ([]types.Artifact, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = repository.DefaultLimit
	}
	skip := max(opts.Skip, 0)

	r.mu.RLock()
	matched := []types.Artifact{}
	for _, a := range r.artifacts {
		if opts.PluginName != "" && a.PluginName != opts.PluginName {
			continue
		}
		if opts.ArtifactType != "" && a.ArtifactType != opts.ArtifactType {
			continue
		}
		if opts.ExperimentID != nil && (a.ExperimentID == nil || *a.ExperimentID != *opts.ExperimentID) {
			continue
		}
		a.Data = cloneData(a.Data)
		matched = append(matched, a)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if skip >= len(matched) {
		return []types.Artifact{}, nil
	}
	return matched[skip:pageEnd(skip, limit, len(matched))], nil
}

// Update applies the non-nil fields of in.
func (r *AnalysisArtifactRepository) Update(_ context.Context, id string, in repository.UpdateArtifactInput) (*types.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[id]
	if !ok {
		return nil, nil
	}
	if in.ArtifactType != nil {
		if *in.ArtifactType == "" {
			return nil, types.NewValidationError("artifact type is required", "artifact_type", nil, nil)
		}
		a.ArtifactType = *in.ArtifactType
	}
	if in.Data != nil {
		a.Data = cloneData(in.Data)
	}
	if in.ExperimentID != nil {
		a.ExperimentID = in.ExperimentID
	}
	a.UpdatedAt = time.Now().UTC()
	r.artifacts[id] = a

	a.Data = cloneData(a.Data)
	return &a, nil
}

// Delete removes the artifact.
func (r *AnalysisArtifactRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.artifacts[id]; !ok {
		return false, nil
	}
	delete(r.artifacts, id)
	return true, nil
}
