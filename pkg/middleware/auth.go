package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/sessions"
	"github.com/gowiki/gowiki/pkg/logger"
)

// Gin context keys populated by the auth middleware.
const (
	ClaimsKey   = "claims"
	IdentityKey = "identity"
	TokenKey    = "accessToken"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

type chain []Verifier

// Chain returns a Verifier that accepts a token if any of vs accepts it.
// Nil verifiers are skipped.
func Chain(vs ...Verifier) Verifier {
	var c chain
	for _, v := range vs {
		if v != nil {
			c = append(c, v)
		}
	}
	return c
}

func (c chain) Verify(ctx context.Context, raw string) (Token, error) {
	err := fmt.Errorf("no verifier configured")
	for _, v := range c {
		var tok Token
		if tok, err = v.Verify(ctx, raw); err == nil {
			return tok, nil
		}
	}
	return nil, err
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
// and rejects requests without one.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return authenticate(ver, true)
}

// OptionalAuthMiddleware authenticates the request when a Bearer token is present and
// lets anonymous requests through. A token that is present but invalid is still rejected.
func OptionalAuthMiddleware(ver Verifier) gin.HandlerFunc {
	return authenticate(ver, false)
}

func authenticate(ver Verifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
				return
			}
			c.Next()
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		blacklisted, err := sessions.IsAccessTokenBlacklisted(ctx, token)
		cancel()
		if err != nil {
			logger.Warnf("blacklist lookup failed: %v", err)
		}
		if blacklisted {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		// Extract claims
		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		id := IdentityFromClaims(claims)
		if !id.Present() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token carries no username"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(IdentityKey, id)
		c.Set(TokenKey, token)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireAdmin rejects requests whose identity is missing or not an administrator.
// It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !id.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}

// IdentityFromClaims maps token claims onto an identity. Locally issued tokens carry
// "username" and "isAdmin"; Keycloak tokens carry "preferred_username" and realm roles.
func IdentityFromClaims(claims map[string]interface{}) *identity.Identity {
	id := &identity.Identity{}
	for _, k := range []string{"username", "preferred_username", "sub"} {
		if s, ok := claims[k].(string); ok && s != "" {
			id.Username = s
			break
		}
	}
	if admin, ok := claims["isAdmin"].(bool); ok {
		id.IsAdmin = admin
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := ra["roles"].([]interface{}); ok {
			for _, r := range roles {
				if r == "admin" {
					id.IsAdmin = true
				}
			}
		}
	}
	return id
}
