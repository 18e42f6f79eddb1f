package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/pkg/middleware"
)

// GenerateAccessToken creates a signed JWT access token for the user
func GenerateAccessToken(cfg *config.Config, u *identity.User, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("JWT secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      u.Username,
		"username": u.Username,
		"email":    u.Email,
		"isAdmin":  u.IsAdmin,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// Verifier validates HS256 access tokens issued by GenerateAccessToken.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates raw, rejecting any algorithm other than HS256.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("JWT secret is not configured")
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, errors.New("token has no expiry")
	}
	return verifiedToken(claims), nil
}

// ExpiresAt returns the expiry of a token verified by v, used to size blacklist entries on logout.
func (v *Verifier) ExpiresAt(ctx context.Context, raw string) (time.Time, error) {
	tok, err := v.Verify(ctx, raw)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := jwt.MapClaims(tok.(verifiedToken)).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("token has no expiry")
	}
	return exp.Time, nil
}

type verifiedToken jwt.MapClaims

// Claims decodes the token claims into v the way *oidc.IDToken does.
func (t verifiedToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
