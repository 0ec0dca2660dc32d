package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// MetadataTemplateRepository is an in-memory
// repository.MetadataTemplateRepository seeded with Add.
type MetadataTemplateRepository struct {
	mu        sync.RWMutex
	templates map[int64]types.MetadataTemplate
}

var _ repository.MetadataTemplateRepository = (*MetadataTemplateRepository)(nil)

// NewMetadataTemplateRepository returns a repository holding templates.
func NewMetadataTemplateRepository(templates ...types.MetadataTemplate) *MetadataTemplateRepository {
	r := &MetadataTemplateRepository{templates: make(map[int64]types.MetadataTemplate)}
	for _, t := range templates {
		r.Add(t)
	}
	return r
}

// Add stores t, replacing any template with the same id. Marking t default
// clears the flag on every other template.
func (r *MetadataTemplateRepository) Add(t types.MetadataTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.IsDefault {
		for id, other := range r.templates {
			other.IsDefault = false
			r.templates[id] = other
		}
	}
	t.Fields = slices.Clone(t.Fields)
	r.templates[t.ID] = t
}

// GetByID returns the template or nil.
func (r *MetadataTemplateRepository) GetByID(_ context.Context, id int64) (*types.MetadataTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	t.Fields = slices.Clone(t.Fields)
	return &t, nil
}

// List returns every template ordered by id.
func (r *MetadataTemplateRepository) List(_ context.Context) ([]types.MetadataTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.MetadataTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		t.Fields = slices.Clone(t.Fields)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDefault returns the default template or nil.
func (r *MetadataTemplateRepository) GetDefault(_ context.Context) (*types.MetadataTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.templates {
		if t.IsDefault {
			t.Fields = slices.Clone(t.Fields)
			return &t, nil
		}
	}
	return nil, nil
}
