package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the wiki API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gowiki - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the wiki and auth endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gowiki", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Page": {"type":"object","properties":{"id":{"type":"string"},"title":{"type":"string"},"content":{"type":"string"},"path":{"type":"string"},"createdBy":{"type":"string"},"createdAt":{"type":"string","format":"date-time"},"updatedBy":{"type":"string"},"updatedAt":{"type":"string","format":"date-time"},"revisions":{"type":"array","items":{"$ref":"#/components/schemas/Revision"}}}},
      "Revision": {"type":"object","properties":{"id":{"type":"string"},"content":{"type":"string"},"editedBy":{"type":"string"},"editedAt":{"type":"string","format":"date-time"},"comment":{"type":"string"}}},
      "Settings": {"type":"object","properties":{"allowFreeEditing":{"type":"boolean"},"requireApproval":{"type":"boolean"},"allowAnonymousViewing":{"type":"boolean"}}}
    }
  },
  "paths": {
    "/auth/signup": {
      "post": { "summary": "Create an account; the first account is an admin", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "201": { "description": "tokens returned" }, "409": { "description": "username or email taken" } } }
    },
    "/auth/login": {
      "post": { "summary": "Login by email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token; all=true ends every session of the account", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"},"all":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "logged out" }, "401": { "description": "unknown refresh token (all=true)" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current identity", "responses": { "200": { "description": "identity" }, "401": { "description": "no token" } } }
    },
    "/api/pages": {
      "get": { "summary": "List pages in creation order", "responses": { "200": { "description": "pages" } } },
      "post": { "summary": "Create a page", "responses": { "201": { "description": "created; may carry a warning when the save failed" }, "400": { "description": "invalid path or title" }, "401": { "description": "unauthenticated" }, "409": { "description": "duplicate path" } } }
    },
    "/api/pages/{id}": {
      "get": { "summary": "Get a page by id", "responses": { "200": { "description": "page" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update page content; the previous content becomes a revision", "responses": { "200": { "description": "updated" }, "401": { "description": "unauthenticated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a page and its history", "responses": { "204": { "description": "deleted" }, "401": { "description": "unauthenticated" }, "404": { "description": "not found" } } }
    },
    "/api/pages/{id}/revisions": { "get": { "summary": "Revision ledger, oldest first", "responses": { "200": { "description": "revisions" } } } },
    "/api/paths/{path}": { "get": { "summary": "Get a page by path", "responses": { "200": { "description": "page" }, "404": { "description": "not found" } } } },
    "/api/search": { "get": { "summary": "Case-insensitive substring search over title and content", "responses": { "200": { "description": "results" } } } },
    "/api/recent": { "get": { "summary": "Recently updated pages", "responses": { "200": { "description": "pages" } } } },
    "/api/sections": { "get": { "summary": "Pages grouped by first path segment", "responses": { "200": { "description": "sections" } } } },
    "/api/breadcrumbs": { "get": { "summary": "Breadcrumbs for a path", "responses": { "200": { "description": "crumbs" } } } },
    "/api/users/{username}/contributions": { "get": { "summary": "Pages created and edited by a user", "responses": { "200": { "description": "contributions" } } } },
    "/api/settings": {
      "get": { "summary": "Wiki settings", "responses": { "200": { "description": "settings" } } },
      "put": { "summary": "Update settings (admin)", "responses": { "200": { "description": "settings" }, "403": { "description": "not an admin" } } }
    },
    "/api/events": { "get": { "summary": "WebSocket stream of page change events", "responses": { "101": { "description": "switching protocols" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
