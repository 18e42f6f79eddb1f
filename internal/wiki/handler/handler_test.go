package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowiki/gowiki/internal/config"
	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/tokens"
	"github.com/gowiki/gowiki/internal/wiki"
	"github.com/gowiki/gowiki/internal/wiki/persistence"
	"github.com/gowiki/gowiki/internal/wiki/store"
	"github.com/gowiki/gowiki/pkg/middleware"
)

const testSecret = "wiki-handler-secret-32-bytes-xxxxx"

// failingSaves accepts loads but rejects every save
type failingSaves struct{ *persistence.MemoryAdapter }

func (failingSaves) Save(ctx context.Context, name string, data []byte) error {
	return errors.New("disk full")
}

type fixture struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Store
	alice  string
	bob    string
}

func newFixture(t *testing.T, adapter persistence.Adapter) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := store.New(adapter)
	r := gin.New()
	New(s).RegisterRoutes(r, tokens.NewVerifier(testSecret))

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	issue := func(u *identity.User) string {
		tok, err := tokens.GenerateAccessToken(cfg, u, time.Hour)
		require.NoError(t, err)
		return tok
	}
	return &fixture{
		t:      t,
		router: r,
		store:  s,
		alice:  issue(&identity.User{Username: "alice", IsAdmin: true}),
		bob:    issue(&identity.User{Username: "bob"}),
	}
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	f.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type pageResponse struct {
	Page    wiki.Page `json:"page"`
	Warning string    `json:"warning"`
}

func TestPageLifecycle(t *testing.T) {
	f := newFixture(t, persistence.NewMemoryAdapter())

	w := f.do(http.MethodPost, "/api/pages", `{"title":"Home","content":"hello","path":"docs/home"}`, f.alice)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[pageResponse](t, w).Page
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Empty(t, created.Revisions)

	w = f.do(http.MethodGet, "/api/paths/docs/home", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[wiki.Page](t, w).ID)

	w = f.do(http.MethodPatch, "/api/pages/"+created.ID, `{"content":"hello world","comment":"expand"}`, f.bob)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[pageResponse](t, w).Page
	assert.Equal(t, "hello world", updated.Content)
	assert.Equal(t, "bob", updated.UpdatedBy)
	require.Len(t, updated.Revisions, 1)
	assert.Equal(t, "hello", updated.Revisions[0].Content)
	assert.Equal(t, "expand", updated.Revisions[0].Comment)

	w = f.do(http.MethodGet, "/api/pages/"+created.ID+"/revisions", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]wiki.Revision](t, w), 1)

	w = f.do(http.MethodGet, "/api/pages", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]wiki.Page](t, w), 1)

	w = f.do(http.MethodDelete, "/api/pages/"+created.ID, "", f.bob)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/api/pages/"+created.ID, "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodGet, "/api/paths/docs/home", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t, persistence.NewMemoryAdapter())

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"anonymous create", http.MethodPost, "/api/pages", `{"title":"T","path":"a"}`, "", http.StatusUnauthorized},
		{"invalid path", http.MethodPost, "/api/pages", `{"title":"T","path":"a//b"}`, f.alice, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/api/pages", `{"title":" ","path":"a"}`, f.alice, http.StatusBadRequest},
		{"unknown update", http.MethodPatch, "/api/pages/nope", `{"content":"x"}`, f.alice, http.StatusNotFound},
		{"update without content", http.MethodPatch, "/api/pages/nope", `{}`, f.alice, http.StatusBadRequest},
		{"anonymous update", http.MethodPatch, "/api/pages/nope", `{"content":"x"}`, "", http.StatusUnauthorized},
		{"unknown delete", http.MethodDelete, "/api/pages/nope", "", f.alice, http.StatusNotFound},
		{"anonymous delete", http.MethodDelete, "/api/pages/nope", "", "", http.StatusUnauthorized},
		{"unknown revisions", http.MethodGet, "/api/pages/nope/revisions", "", "", http.StatusNotFound},
		{"bad token", http.MethodGet, "/api/pages", "", "garbage", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(tc.method, tc.path, tc.body, tc.token)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	w := f.do(http.MethodPost, "/api/pages", `{"title":"A","path":"a"}`, f.alice)
	require.Equal(t, http.StatusCreated, w.Code)
	w = f.do(http.MethodPost, "/api/pages", `{"title":"B","path":"a"}`, f.bob)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPersistenceFailureReturnsWarning(t *testing.T) {
	f := newFixture(t, failingSaves{persistence.NewMemoryAdapter()})

	w := f.do(http.MethodPost, "/api/pages", `{"title":"Home","content":"x","path":"home"}`, f.alice)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[pageResponse](t, w)
	assert.Contains(t, resp.Warning, "disk full")
	assert.Equal(t, "home", resp.Page.Path)

	_, ok := f.store.GetPageByPath("home")
	assert.True(t, ok)

	w = f.do(http.MethodDelete, "/api/pages/"+resp.Page.ID, "", f.alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "warning")
	assert.Equal(t, 0, f.store.Len())
}

func TestQueries(t *testing.T) {
	f := newFixture(t, persistence.NewMemoryAdapter())
	for _, p := range []struct{ title, path, content string }{
		{"Guide", "docs", "start here"},
		{"Install", "docs/install", "run the Installer"},
		{"Roadmap", "plans/2025", "ship it"},
	} {
		w := f.do(http.MethodPost, "/api/pages", fmt.Sprintf(`{"title":%q,"path":%q,"content":%q}`, p.title, p.path, p.content), f.alice)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	install, _ := f.store.GetPageByPath("docs/install")
	w := f.do(http.MethodPatch, "/api/pages/"+install.ID, `{"content":"run the installer twice"}`, f.bob)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/search?q=INSTALLER", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	search := decode[struct {
		Query   string      `json:"query"`
		Results []wiki.Page `json:"results"`
	}](t, w)
	require.Len(t, search.Results, 1)
	assert.Equal(t, "docs/install", search.Results[0].Path)

	w = f.do(http.MethodGet, "/api/search?q=", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"query":"","results":[]}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/recent?limit=1", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	recent := decode[[]wiki.Page](t, w)
	require.Len(t, recent, 1)
	assert.Equal(t, "docs/install", recent[0].Path)

	w = f.do(http.MethodGet, "/api/sections", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	sections := decode[[]wiki.Section](t, w)
	require.Len(t, sections, 2)
	assert.Equal(t, "docs", sections[0].Name)

	w = f.do(http.MethodGet, "/api/breadcrumbs?path=docs/install", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	crumbs := decode[[]wiki.Crumb](t, w)
	require.Len(t, crumbs, 2)
	assert.Equal(t, "Guide", crumbs[0].Name)
	assert.True(t, crumbs[1].Current)

	w = f.do(http.MethodGet, "/api/breadcrumbs", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/users/bob/contributions", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	contrib := decode[struct {
		Created []wiki.Page         `json:"created"`
		Edited  []wiki.Contribution `json:"edited"`
	}](t, w)
	assert.Empty(t, contrib.Created)
	require.Len(t, contrib.Edited, 1)
}

func TestSettings(t *testing.T) {
	f := newFixture(t, persistence.NewMemoryAdapter())

	w := f.do(http.MethodGet, "/api/settings", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, wiki.DefaultSettings(), decode[wiki.Settings](t, w))

	w = f.do(http.MethodPut, "/api/settings", `{"allowAnonymousViewing":false}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodPut, "/api/settings", `{"allowAnonymousViewing":false}`, f.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPut, "/api/settings", `{"allowAnonymousViewing":false,"allowFreeEditing":false}`, f.alice)
	require.Equal(t, http.StatusOK, w.Code)
	got := f.store.GetSettings()
	assert.False(t, got.AllowAnonymousViewing)
	assert.False(t, got.AllowFreeEditing)
	assert.False(t, got.RequireApproval)

	// anonymous reads are now refused, signed-in reads still work
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/pages", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/pages", "", f.bob).Code)

	// only admins may edit
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/pages", `{"title":"T","path":"t"}`, f.bob).Code)
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/pages", `{"title":"T","path":"t"}`, f.alice).Code)
}

func TestEventsWebSocket(t *testing.T) {
	f := newFixture(t, persistence.NewMemoryAdapter())
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	p, err := f.store.CreatePage(context.Background(), "Home", "", "home", &identity.Identity{Username: "carol"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wiki.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, wiki.EventCreated, ev.Type)
	assert.Equal(t, p.ID, ev.PageID)
	assert.Equal(t, "carol", ev.Actor)
}

func TestEventsWebSocketOrigin(t *testing.T) {
	s := store.New(persistence.NewMemoryAdapter())
	dial := func(h *Handler, origin string) (*http.Response, error) {
		r := gin.New()
		h.RegisterRoutes(r, tokens.NewVerifier(testSecret))
		srv := httptest.NewServer(r)
		t.Cleanup(srv.Close)
		hdr := http.Header{}
		hdr.Set("Origin", origin)
		conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/events", hdr)
		if err == nil {
			conn.Close()
		}
		return resp, err
	}

	resp, err := dial(New(s), "https://evil.example")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = dial(New(s, WithAllowedOrigins(middleware.Origins{"https://app.example.com"})), "https://app.example.com")
	require.NoError(t, err)
}
