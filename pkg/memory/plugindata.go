package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

type resultKey struct {
	experimentID int64
	pluginID     string
}

// PluginDataRepository is an in-memory repository.PluginDataRepository.
type PluginDataRepository struct {
	mu           sync.RWMutex
	nextDataID   int64
	nextResultID int64
	design       map[int64]types.DesignData
	results      map[resultKey]types.AnalysisResult
}

var _ repository.PluginDataRepository = (*PluginDataRepository)(nil)

// NewPluginDataRepository returns an empty repository.
func NewPluginDataRepository() *PluginDataRepository {
	return &PluginDataRepository{
		design:  make(map[int64]types.DesignData),
		results: make(map[resultKey]types.AnalysisResult),
	}
}

// SaveExperimentData upserts the design data of an experiment.
func (r *PluginDataRepository) SaveExperimentData(_ context.Context, experimentID int64, pluginID string, data map[string]any, schemaVersion string) (*types.DesignData, error) {
	if schemaVersion == "" {
		schemaVersion = repository.DefaultSchemaVersion
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	d, ok := r.design[experimentID]
	if !ok {
		r.nextDataID++
		d = types.DesignData{ID: r.nextDataID, ExperimentID: experimentID, CreatedAt: now}
	}
	d.PluginID = pluginID
	d.Data = cloneData(data)
	d.SchemaVersion = schemaVersion
	d.UpdatedAt = now
	r.design[experimentID] = d

	out := d
	out.Data = cloneData(d.Data)
	return &out, nil
}

// GetExperimentData returns the design data or nil.
func (r *PluginDataRepository) GetExperimentData(_ context.Context, experimentID int64) (*types.DesignData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.design[experimentID]
	if !ok {
		return nil, nil
	}
	d.Data = cloneData(d.Data)
	return &d, nil
}

// DeleteExperimentData removes the design data of an experiment.
func (r *PluginDataRepository) DeleteExperimentData(_ context.Context, experimentID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.design[experimentID]; !ok {
		return false, nil
	}
	delete(r.design, experimentID)
	return true, nil
}

// SaveAnalysisResult upserts the result of one plugin for one experiment.
func (r *PluginDataRepository) SaveAnalysisResult(_ context.Context, experimentID int64, pluginID string, result map[string]any) (*types.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	k := resultKey{experimentID, pluginID}
	res, ok := r.results[k]
	if !ok {
		r.nextResultID++
		res = types.AnalysisResult{ID: r.nextResultID, ExperimentID: experimentID, PluginID: pluginID, CreatedAt: now}
	}
	res.Result = cloneData(result)
	res.UpdatedAt = now
	r.results[k] = res

	out := res
	out.Result = cloneData(res.Result)
	return &out, nil
}

// GetAnalysisResult returns one plugin's result or nil.
func (r *PluginDataRepository) GetAnalysisResult(_ context.Context, experimentID int64, pluginID string) (*types.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.results[resultKey{experimentID, pluginID}]
	if !ok {
		return nil, nil
	}
	res.Result = cloneData(res.Result)
	return &res, nil
}

// GetAnalysisResults returns every plugin's result for an experiment,
// ordered by plugin id.
func (r *PluginDataRepository) GetAnalysisResults(_ context.Context, experimentID int64) ([]types.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []types.AnalysisResult{}
	for k, res := range r.results {
		if k.experimentID != experimentID {
			continue
		}
		res.Result = cloneData(res.Result)
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PluginID < out[j].PluginID })
	return out, nil
}

// DeleteAnalysisResult removes one plugin's result.
func (r *PluginDataRepository) DeleteAnalysisResult(_ context.Context, experimentID int64, pluginID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := resultKey{experimentID, pluginID}
	if _, ok := r.results[k]; !ok {
		return false, nil
	}
	delete(r.results, k)
	return true, nil
}
