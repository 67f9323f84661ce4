package grpcserver

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

type ctxKey string

const userKey ctxKey = "pj.user"

// WithUser stores the authenticated collaborator in context.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromCtx fetches the authenticated collaborator from context.
func UserFromCtx(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	if !ok || u == nil || u.ID == 0 {
		return nil, false
	}
	return u, true
}
