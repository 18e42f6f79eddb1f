// Package oidc verifies ID tokens issued by an external identity provider
// (Keycloak) so SSO users can edit the wiki without a local account.
package oidc

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/gowiki/gowiki/pkg/middleware"
)

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	issuer   string
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{issuer: issuer, verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// Issuer returns the discovered issuer URL.
func (v *Verifier) Issuer() string { return v.issuer }

// Verify checks signature, issuer, audience and expiry of raw. The returned
// *oidc.IDToken exposes claims such as preferred_username and realm_access.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
