package platform

import (
	"context"

	"github.com/mld-platform/mld-sdk/pkg/types"
)

type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *types.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user attached by WithUser.
func UserFromContext(ctx context.Context) (*types.User, bool) {
	u, ok := ctx.Value(userKey{}).(*types.User)
	return u, ok && u != nil
}
