package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/sessions"
	"github.com/gowiki/gowiki/internal/tokens"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
)

type authFixture struct {
	router   *gin.Engine
	users    *identity.Service
	sessions *sessions.Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "auth-handler-secret-32-bytes-xxxx"
	cfg.JWT.AccessTokenTTL = 5 * time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour

	uSvc := identity.NewService(identity.NewRecordUserRepository(persistence.NewMemoryAdapter()))
	sSvc := sessions.NewService(sessions.NewMemoryRepository())

	r := gin.New()
	NewAuthHandler(cfg, uSvc, sSvc).Register(r.Group("/"), tokens.NewVerifier(cfg.JWT.Secret))
	return &authFixture{router: r, users: uSvc, sessions: sSvc}
}

func (f *authFixture) do(t *testing.T, method, path, body, bearer string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var got map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	return w, got
}

func TestSignup_FirstUserIsAdmin(t *testing.T) {
	f := newAuthFixture(t)

	w, got := f.do(t, "POST", "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, got["accessToken"])
	assert.NotEmpty(t, got["refreshToken"])
	user := got["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, true, user["isAdmin"])
	assert.NotContains(t, user, "passwordHash")

	w, got = f.do(t, "POST", "/auth/signup", `{"username":"bob","email":"bob@example.com","password":"pw2"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, got["user"].(map[string]interface{})["isAdmin"])
}

func TestSignup_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	w, _ := f.do(t, "POST", "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, "POST", "/auth/signup", `{"username":"other","email":"ALICE@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(t, "POST", "/auth/signup", `{"username":"x"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.users.Signup(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	w, _ := f.do(t, "POST", "/auth/login", `{"email":"alice@example.com","password":"wrong"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, "POST", "/auth/login", `{"email":"nobody@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, got := f.do(t, "POST", "/auth/login", `{"email":"alice@example.com","password":"secret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	access := got["accessToken"].(string)
	assert.Equal(t, float64(300), got["expiresIn"])

	w, me := f.do(t, "GET", "/api/v1/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, true, me["isAdmin"])
}

func TestMe_RequiresToken(t *testing.T) {
	f := newAuthFixture(t)
	w, _ := f.do(t, "GET", "/api/v1/me", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.users.Signup(context.Background(), "carol", "carol@example.com", "pw")
	require.NoError(t, err)

	rt, err := f.sessions.CreateSession(context.Background(), "carol", time.Hour)
	require.NoError(t, err)

	w, got := f.do(t, "POST", "/auth/refresh", fmt.Sprintf(`{"refreshToken":%q}`, rt), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, got["accessToken"])

	w, _ = f.do(t, "POST", "/auth/refresh", `{"refreshToken":"unknown"}`, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// session for an account that does not exist
	orphan, err := f.sessions.CreateSession(context.Background(), "ghost", time.Hour)
	require.NoError(t, err)
	w, _ = f.do(t, "POST", "/auth/refresh", fmt.Sprintf(`{"refreshToken":%q}`, orphan), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	f := newAuthFixture(t)
	w, got := f.do(t, "POST", "/auth/signup", `{"username":"dave","email":"dave@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	access := got["accessToken"].(string)
	refresh := got["refreshToken"].(string)

	w, _ = f.do(t, "POST", "/auth/logout", fmt.Sprintf(`{"refreshToken":%q}`, refresh), access)
	require.Equal(t, http.StatusOK, w.Code)

	ok, err := sessions.IsAccessTokenBlacklisted(context.Background(), access)
	require.NoError(t, err)
	assert.True(t, ok)

	w, _ = f.do(t, "GET", "/api/v1/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, "POST", "/auth/refresh", fmt.Sprintf(`{"refreshToken":%q}`, refresh), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_AllSessions(t *testing.T) {
	f := newAuthFixture(t)
	w, got := f.do(t, "POST", "/auth/signup", `{"username":"erin","email":"erin@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	first := got["refreshToken"].(string)

	w, got = f.do(t, "POST", "/auth/login", `{"email":"erin@example.com","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	second := got["refreshToken"].(string)

	w, got = f.do(t, "POST", "/auth/logout", fmt.Sprintf(`{"refreshToken":%q,"all":true}`, second), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), got["sessions"])

	for _, rt := range []string{first, second} {
		w, _ = f.do(t, "POST", "/auth/refresh", fmt.Sprintf(`{"refreshToken":%q}`, rt), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w, _ = f.do(t, "POST", "/auth/logout", fmt.Sprintf(`{"refreshToken":%q,"all":true}`, second), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseExpFromJWT(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1700000000}`))
	exp, err := parseExpFromJWT("hdr." + payload + ".sig")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())

	_, err = parseExpFromJWT("garbage")
	assert.Error(t, err)

	noExp := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
	_, err = parseExpFromJWT("hdr." + noExp + ".sig")
	assert.Error(t, err)
}
