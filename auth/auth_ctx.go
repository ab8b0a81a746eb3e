// Package auth carries the host app's authenticated user through
// request contexts. The chat core never authenticates anyone itself;
// the web middleware decodes the shared session cookie into here and
// the service layer fails closed when no user is present.
package auth

import (
	"context"

	"github.com/studyhallhq/studyhall/types"
)

type ctxKey struct{}

func ContextWithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(types.User)
	return user, ok
}
