package auth

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the Identity in the given context.
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(Identity)
	return identity, ok
}

// WithClaimsContext sets the credential claims in the given context.
func WithClaimsContext(ctx context.Context, claims *CredentialClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the credential claims from the context.
func ClaimsFromContext(ctx context.Context) (*CredentialClaims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(*CredentialClaims)
	return claims, ok
}

// HasRole is a convenience check against the identity stored in the context.
func HasRole(ctx context.Context, roles ...Role) bool {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return RoleSet(roles).Contains(identity.Role)
}
