// Package handler exposes the document store over HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/gowiki/gowiki/internal/identity"
	"github.com/gowiki/gowiki/internal/wiki/store"
	"github.com/gowiki/gowiki/pkg/logger"
	"github.com/gowiki/gowiki/pkg/middleware"
)

// Handler serves the wiki API
type Handler struct {
	store    *store.Store
	upgrader websocket.Upgrader
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllowedOrigins lets the listed cross-site origins open the event stream.
// Without it only same-origin websocket clients are accepted.
func WithAllowedOrigins(origins middleware.Origins) Option {
	return func(h *Handler) { h.upgrader.CheckOrigin = origins.CheckOrigin }
}

func New(s *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:    s,
		upgrader: websocket.Upgrader{CheckOrigin: middleware.Origins(nil).CheckOrigin},
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// RegisterRoutes mounts the wiki API under /api. Requests are authenticated when they carry
// a bearer token; mutations without one are rejected by the store.
func (h *Handler) RegisterRoutes(r *gin.Engine, ver middleware.Verifier) {
	api := r.Group("/api", middleware.OptionalAuthMiddleware(ver))

	read := api.Group("", h.viewGuard())
	read.GET("/pages", h.listPages)
	read.GET("/pages/:id", h.getPage)
	read.GET("/pages/:id/revisions", h.getRevisions)
	read.GET("/paths/*path", h.getPageByPath)
	read.GET("/recent", h.recentPages)
	read.GET("/search", h.searchPages)
	read.GET("/sections", h.sections)
	read.GET("/breadcrumbs", h.breadcrumbs)
	read.GET("/users/:username/contributions", h.contributions)
	read.GET("/events", h.events)

	write := api.Group("", h.editGuard())
	write.POST("/pages", h.createPage)
	write.PATCH("/pages/:id", h.updatePage)
	write.DELETE("/pages/:id", h.deletePage)

	api.GET("/settings", h.getSettings)
	api.PUT("/settings", middleware.RequireAdmin(), h.updateSettings)
}

// viewGuard enforces allowAnonymousViewing.
func (h *Handler) viewGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.store.GetSettings().AllowAnonymousViewing {
			c.Next()
			return
		}
		if _, ok := identity.FromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in to view this wiki"})
			return
		}
		c.Next()
	}
}

// editGuard restricts mutations to administrators when allowFreeEditing is off.
// Anonymous callers fall through so the store reports them as unauthenticated.
func (h *Handler) editGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.store.GetSettings().AllowFreeEditing {
			c.Next()
			return
		}
		if id, ok := identity.FromContext(c.Request.Context()); ok && !id.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "editing is restricted to administrators"})
			return
		}
		c.Next()
	}
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicatePath):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidPath), errors.Is(err, store.ErrInvalidTitle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respond writes body with status, or the error mapping when err is a hard failure.
// A persistence failure leaves the mutation applied, so the body is still returned
// with a warning attached.
func respond(c *gin.Context, status int, body gin.H, err error) {
	if err != nil && !store.IsPersistenceFailure(err) {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		body["warning"] = "change applied but could not be saved: " + err.Error()
	}
	c.JSON(status, body)
}

func actor(c *gin.Context) *identity.Identity {
	id, _ := identity.FromContext(c.Request.Context())
	return id
}

func intQuery(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return def
}
