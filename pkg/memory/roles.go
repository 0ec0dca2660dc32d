package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

type roleKey struct {
	pluginID string
	userID   int64
}

// PluginRoleRepository is an in-memory repository.PluginRoleRepository.
type PluginRoleRepository struct {
	mu     sync.RWMutex
	nextID int64
	roles  map[roleKey]types.UserPluginRole
}

var _ repository.PluginRoleRepository = (*PluginRoleRepository)(nil)

// NewPluginRoleRepository returns an empty repository.
func NewPluginRoleRepository() *PluginRoleRepository {
	return &PluginRoleRepository{roles: make(map[roleKey]types.UserPluginRole)}
}

// GetRole reports the user's role in the plugin.
func (r *PluginRoleRepository) GetRole(_ context.Context, pluginID string, userID int64) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.roles[roleKey{pluginID, userID}]
	if !ok {
		return "", false, nil
	}
	return a.Role, true, nil
}

// SetRole inserts or replaces the assignment.
func (r *PluginRoleRepository) SetRole(_ context.Context, pluginID string, userID int64, role string) (*types.UserPluginRole, error) {
	if role == "" {
		return nil, types.NewValidationError("role is required", "role", nil, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	k := roleKey{pluginID, userID}
	a, ok := r.roles[k]
	if !ok {
		r.nextID++
		a = types.UserPluginRole{ID: r.nextID, UserID: userID, PluginID: pluginID, CreatedAt: now}
	}
	a.Role = role
	a.UpdatedAt = now
	r.roles[k] = a
	return &a, nil
}

// RemoveRole deletes the assignment.
func (r *PluginRoleRepository) RemoveRole(_ context.Context, pluginID string, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := roleKey{pluginID, userID}
	if _, ok := r.roles[k]; !ok {
		return false, nil
	}
	delete(r.roles, k)
	return true, nil
}

// ListPluginRoles returns a plugin's assignments ordered by user id.
func (r *PluginRoleRepository) ListPluginRoles(_ context.Context, pluginID string) ([]types.UserPluginRole, error) {
	out := r.filter(func(k roleKey) bool { return k.pluginID == pluginID })
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ListUserRoles returns a user's assignments ordered by plugin id.
func (r *PluginRoleRepository) ListUserRoles(_ context.Context, userID int64) ([]types.UserPluginRole, error) {
	out := r.filter(func(k roleKey) bool { return k.userID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].PluginID < out[j].PluginID })
	return out, nil
}

func (r *PluginRoleRepository) filter(keep func(roleKey) bool) []types.UserPluginRole {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []types.UserPluginRole{}
	for k, a := range r.roles {
		if keep(k) {
			out = append(out, a)
		}
	}
	return out
}
