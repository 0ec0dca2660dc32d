package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// DefaultExperimentStatus is the status of a newly created experiment.
const DefaultExperimentStatus = "planned"

// ExperimentRepository is an in-memory repository.ExperimentRepository.
type ExperimentRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]types.Experiment
	data   repository.PluginDataRepository
	now    func() time.Time
}

var _ repository.ExperimentRepository = (*ExperimentRepository)(nil)

// NewExperimentRepository returns an empty repository. data, when non-nil,
// answers HasDesignData.
func NewExperimentRepository(data repository.PluginDataRepository) *ExperimentRepository {
	return &ExperimentRepository{
		items: make(map[int64]types.Experiment),
		data:  data,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// GetByID returns the experiment or nil.
func (r *ExperimentRepository) GetByID(_ context.Context, id int64) (*types.Experiment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	out := cloneExperiment(e)
	return &out, nil
}

// List filters, orders by id and pages.
func (r *ExperimentRepository) List(_ context.Context, opts repository.ListExperimentsOptions) ([]types.Experiment, int, error) {
	opts = opts.Normalize()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []types.Experiment
	for _, e := range r.items {
		if matchesExperiment(e, opts) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if opts.Skip >= total {
		return []types.Experiment{}, total, nil
	}
	end := pageEnd(opts.Skip, opts.Limit, total)
	page := make([]types.Experiment, 0, end-opts.Skip)
	for _, e := range matched[opts.Skip:end] {
		page = append(page, cloneExperiment(e))
	}
	return page, total, nil
}

// Create stores a new experiment with the next id.
func (r *ExperimentRepository) Create(_ context.Context, in repository.CreateExperimentInput) (*types.Experiment, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, types.NewValidationError("experiment name is required", "name", nil, nil)
	}
	if in.ExperimentType == "" {
		return nil, types.NewValidationError("experiment type is required", "experiment_type", nil, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if in.ParentExperimentID != nil {
		if _, ok := r.items[*in.ParentExperimentID]; !ok {
			return nil, types.NewNotFoundError("parent experiment not found", "experiment",
				fmt.Sprint(*in.ParentExperimentID), nil)
		}
	}

	r.nextID++
	now := r.now()
	e := types.Experiment{
		ID:                 r.nextID,
		Name:               in.Name,
		ExperimentType:     in.ExperimentType,
		Status:             DefaultExperimentStatus,
		CreatedAt:          now,
		UpdatedAt:          now,
		CreatedBy:          in.CreatedBy,
		ParentExperimentID: in.ParentExperimentID,
		Project:            in.Project,
		Notes:              in.Notes,
		Tags:               cloneData(in.Tags),
	}
	r.items[e.ID] = e
	out := cloneExperiment(e)
	return &out, nil
}

// Update applies the non-nil fields of in.
func (r *ExperimentRepository) Update(_ context.Context, id int64, in repository.UpdateExperimentInput) (*types.Experiment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, types.NewValidationError("experiment name is required", "name", nil, nil)
		}
		e.Name = *in.Name
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.ExperimentType != nil {
		e.ExperimentType = *in.ExperimentType
	}
	if in.ParentExperimentID != nil {
		if *in.ParentExperimentID == id {
			return nil, types.NewValidationError("experiment cannot be its own parent",
				"parent_experiment_id", *in.ParentExperimentID, nil)
		}
		e.ParentExperimentID = in.ParentExperimentID
	}
	if in.Project != nil {
		e.Project = in.Project
	}
	if in.Notes != nil {
		e.Notes = in.Notes
	}
	if in.Tags != nil {
		e.Tags = cloneData(in.Tags)
	}
	e.UpdatedAt = r.now()
	r.items[id] = e
	out := cloneExperiment(e)
	return &out, nil
}

// Delete removes the experiment.
func (r *ExperimentRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// HasDesignData asks the attached plugin data repository.
func (r *ExperimentRepository) HasDesignData(ctx context.Context, id int64) (bool, error) {
	if r.data == nil {
		return false, nil
	}
	d, err := r.data.GetExperimentData(ctx, id)
	if err != nil {
		return false, err
	}
	return d != nil, nil
}

func matchesExperiment(e types.Experiment, opts repository.ListExperimentsOptions) bool {
	if opts.Status != "" && e.Status != opts.Status {
		return false
	}
	if opts.ExperimentType != "" && e.ExperimentType != opts.ExperimentType {
		return false
	}
	if opts.Project != "" && (e.Project == nil || *e.Project != opts.Project) {
		return false
	}
	if opts.CreatedBy != nil && (e.CreatedBy == nil || *e.CreatedBy != *opts.CreatedBy) {
		return false
	}
	if opts.ParentExperimentID != nil && (e.ParentExperimentID == nil || *e.ParentExperimentID != *opts.ParentExperimentID) {
		return false
	}
	if opts.Search != "" {
		q := strings.ToLower(opts.Search)
		inName := strings.Contains(strings.ToLower(e.Name), q)
		inNotes := e.Notes != nil && strings.Contains(strings.ToLower(*e.Notes), q)
		if !inName && !inNotes {
			return false
		}
	}
	return true
}

func cloneExperiment(e types.Experiment) types.Experiment {
	e.Tags = cloneData(e.Tags)
	e.CustomMetadata = cloneData(e.CustomMetadata)
	return e
}

// pageEnd returns the exclusive end of a skip/limit page over total items
// without overflowing when limit is close to math.MaxInt.
func pageEnd(skip, limit, total int) int {
	if limit < total-skip {
		return skip + limit
	}
	return total
}
