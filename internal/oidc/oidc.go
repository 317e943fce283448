package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/tourcraft/tourcraft/pkg/middleware"
)

// Verifier checks ID tokens issued by the Keycloak realm.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// IssuerURL builds the realm issuer from a Keycloak base URL. When realm is
// empty, baseURL is assumed to already point at the realm.
func IssuerURL(baseURL, realm string) string {
	base := strings.TrimRight(baseURL, "/")
	if realm == "" {
		return base
	}
	return base + "/realms/" + realm
}

// NewVerifier discovers the provider at issuer and returns a verifier for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Verify verifies the raw ID token and returns its claims holder.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
