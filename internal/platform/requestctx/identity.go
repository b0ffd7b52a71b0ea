// Package requestctx carries per-request identity through context values.
package requestctx

import "context"

// identityContextKey is the context key for authenticated caller identity.
type identityContextKey struct{}

// Identity describes the resolved caller of a request.
type Identity struct {
	// TokenIdentifier is the stable subject from the identity provider token.
	TokenIdentifier string
	// Name is the display name claimed by the token, if any.
	Name string
}

// WithIdentity stores a resolved caller identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the caller identity stored in context.
// The second return is false when no identity was resolved.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || identity.TokenIdentifier == "" {
		return Identity{}, false
	}
	return identity, true
}
