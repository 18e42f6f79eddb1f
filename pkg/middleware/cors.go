package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Origins lists the browser origins allowed to call the API cross-site.
// "*" allows any origin. Same-origin requests are always allowed.
type Origins []string

// ParseOrigins splits a comma-separated origin list.
func ParseOrigins(s string) Origins {
	var out Origins
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, strings.TrimRight(o, "/"))
		}
	}
	return out
}

// Allows reports whether a request from origin to host may proceed.
func (o Origins) Allows(origin, host string) bool {
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, host) {
		return true
	}
	for _, a := range o {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// CheckOrigin adapts Allows to websocket.Upgrader.CheckOrigin.
func (o Origins) CheckOrigin(r *http.Request) bool {
	return o.Allows(r.Header.Get("Origin"), r.Host)
}

// CORSMiddleware answers preflights and sets CORS headers for allowed origins only.
func CORSMiddleware(allowed Origins) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed.Allows(origin, c.Request.Host) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			h.Set("Access-Control-Expose-Headers", "Content-Length")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
