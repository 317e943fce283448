package models

import "context"

// Identity is the authenticated caller, mapped from token claims.
type Identity struct {
	Sub   string `json:"sub"` // OIDC subject
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// IdentityFromClaims maps a verified claims set. ok is false when sub is missing.
func IdentityFromClaims(claims map[string]interface{}) (Identity, bool) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, false
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["preferred_username"].(string)
	}
	return Identity{Sub: sub, Email: email, Name: name}, true
}

type identityKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
