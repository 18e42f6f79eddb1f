// Package identity supplies the acting user for attribution. The wiki store
// never authenticates; it only requires that an Identity be presented for
// mutating calls.
package identity

import (
	"context"
	"strings"
)

// Identity is the acting user as seen by the store.
type Identity struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Present reports whether i names a user. A nil or blank identity is anonymous.
func (i *Identity) Present() bool {
	return i != nil && strings.TrimSpace(i.Username) != ""
}

// Provider exposes the current identity, if any.
type Provider interface {
	Current(ctx context.Context) (*Identity, bool)
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || !id.Present() {
		return nil, false
	}
	return id, true
}

// ContextProvider reads the identity placed in the request context by the auth middleware.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) (*Identity, bool) {
	return FromContext(ctx)
}
