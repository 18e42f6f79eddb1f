package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/identity"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func segment(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func TestGenerateAccessToken_ValidAndClaims(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	u := &identity.User{Username: "alice", Email: "alice@example.com", IsAdmin: true}

	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	tok, err := NewVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "alice", claims["username"])
	require.Equal(t, "alice", claims["sub"])
	require.Equal(t, true, claims["isAdmin"])

	var typed struct {
		Username string `json:"username"`
		IsAdmin  bool   `json:"isAdmin"`
	}
	require.NoError(t, tok.Claims(&typed))
	require.Equal(t, "alice", typed.Username)
	require.True(t, typed.IsAdmin)
}

func TestGenerateAccessToken_RequiresSecret(t *testing.T) {
	_, err := GenerateAccessToken(testConfig(""), &identity.User{Username: "x"}, time.Minute)
	require.Error(t, err)

	_, err = NewVerifier("").Verify(context.Background(), "a.b.c")
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	tokenStr, err := GenerateAccessToken(cfg, &identity.User{Username: "u2"}, -time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), tokenStr)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	cfg := testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &identity.User{Username: "bob"}, 2*time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("different-secret-xxxxxxxxxxxxxxxx").Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewVerifier("x").Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	tok := segment(`{"alg":"none","typ":"JWT"}`) + "." + segment(`{"username":"u-none","exp":9999999999}`) + "."
	_, err := NewVerifier("x").Verify(context.Background(), tok)
	require.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &identity.User{Username: "user-t"}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = segment(strings.ReplaceAll(string(payload), "user-t", "attacker"))

	_, err = NewVerifier(cfg.JWT.Secret).Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}

func TestExpiresAt(t *testing.T) {
	cfg := testConfig("expiry-secret-32-bytes-xxxxxxxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &identity.User{Username: "e"}, 10*time.Minute)
	require.NoError(t, err)

	exp, err := NewVerifier(cfg.JWT.Secret).ExpiresAt(context.Background(), tokenStr)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)
}

func TestVerify_RequiresExpiry(t *testing.T) {
	secret := "no-exp-secret-32-bytes-xxxxxxxxxxxx"
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "forever"}).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewVerifier(secret).Verify(context.Background(), raw)
	require.Error(t, err)
}
