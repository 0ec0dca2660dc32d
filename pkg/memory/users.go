package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mld-platform/mld-sdk/pkg/repository"
	"github.com/mld-platform/mld-sdk/pkg/types"
)

// UserRepository is an in-memory repository.UserRepository. Plugins only
// read users; Add seeds them.
type UserRepository struct {
	mu    sync.RWMutex
	users map[int64]types.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository returns a repository holding users.
func NewUserRepository(users ...types.User) *UserRepository {
	r := &UserRepository{users: make(map[int64]types.User)}
	for _, u := range users {
		_ = r.Add(u)
	}
	return r
}

// Add stores u. Usernames must be unique.
func (r *UserRepository) Add(u types.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username && existing.ID != u.ID {
			return types.NewConflictError(fmt.Sprintf("username %q already exists", u.Username), "user", "username", nil)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	r.users[u.ID] = u
	return nil
}

// GetByID returns the user or nil.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByUsername returns the user or nil.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

// List pages users ordered by id. A non-positive limit means the default.
func (r *UserRepository) List(_ context.Context, skip, limit int) ([]types.User, error) {
	if limit <= 0 {
		limit = repository.DefaultLimit
	}
	skip = max(skip, 0)

	r.mu.RLock()
	all := make([]types.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if skip >= len(all) {
		return []types.User{}, nil
	}
	return all[skip:pageEnd(skip, limit, len(all))], nil
}
