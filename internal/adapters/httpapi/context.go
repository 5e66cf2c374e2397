package httpapi

import (
	"context"

	"github.com/plateshare/foodbank-api/internal/platform/token"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id token.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (token.Identity, bool) {
	v, ok := ctx.Value(identityKey{}).(token.Identity)
	return v, ok && v.Subject != ""
}
