package repository

import (
	"context"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

// readOnlyExperiments passes reads through and denies writes.
type readOnlyExperiments struct {
	inner ExperimentRepository
}

// ReadOnlyExperiments wraps repo so that Create, Update and Delete fail with a
// PermissionError requiring experiment:write.
func ReadOnlyExperiments(repo ExperimentRepository) ExperimentRepository {
	if ro, ok := repo.(*readOnlyExperiments); ok {
		return ro
	}
	return &readOnlyExperiments{inner: repo}
}

// ExperimentsFor returns the view of repo a plugin of the given category is
// allowed to use: read-only for analysis plugins, repo itself for experiment
// design plugins.
func ExperimentsFor(repo ExperimentRepository, category types.PluginType) ExperimentRepository {
	if repo == nil {
		return nil
	}
	if category == types.PluginTypeExperimentDesign {
		return repo
	}
	return ReadOnlyExperiments(repo)
}

// IsReadOnly reports whether repo is a read-only view.
func IsReadOnly(repo ExperimentRepository) bool {
	_, ok := repo.(*readOnlyExperiments)
	return ok
}

func (r *readOnlyExperiments) GetByID(ctx context.Context, id int64) (*types.Experiment, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *readOnlyExperiments) List(ctx context.Context, opts ListExperimentsOptions) ([]types.Experiment, int, error) {
	return r.inner.List(ctx, opts)
}

func (r *readOnlyExperiments) HasDesignData(ctx context.Context, id int64) (bool, error) {
	return r.inner.HasDesignData(ctx, id)
}

func (r *readOnlyExperiments) Create(context.Context, CreateExperimentInput) (*types.Experiment, error) {
	return nil, denyWrite("create")
}

func (r *readOnlyExperiments) Update(context.Context, int64, UpdateExperimentInput) (*types.Experiment, error) {
	return nil, denyWrite("update")
}

func (r *readOnlyExperiments) Delete(context.Context, int64) (bool, error) {
	return false, denyWrite("delete")
}

func denyWrite(op string) error {
	return types.NewPermissionError(
		"analysis plugins cannot modify experiments",
		PermissionExperimentWrite,
		map[string]any{"operation": op},
	)
}
