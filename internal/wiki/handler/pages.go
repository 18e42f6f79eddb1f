package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createPageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Path    string `json:"path"`
}

type updatePageRequest struct {
	Content *string `json:"content" binding:"required"`
	Comment string  `json:"comment"`
}

func (h *Handler) listPages(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.ListPages())
}

func (h *Handler) getPage(c *gin.Context) {
	p, ok := h.store.GetPage(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) getPageByPath(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	p, ok := h.store.GetPageByPath(path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found", "path": path})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) getRevisions(c *gin.Context) {
	revs, err := h.store.Revisions(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, revs)
}

func (h *Handler) createPage(c *gin.Context) {
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.store.CreatePage(c.Request.Context(), req.Title, req.Content, req.Path, actor(c))
	respond(c, http.StatusCreated, gin.H{"page": p}, err)
}

func (h *Handler) updatePage(c *gin.Context) {
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.store.UpdatePage(c.Request.Context(), c.Param("id"), *req.Content, req.Comment, actor(c))
	respond(c, http.StatusOK, gin.H{"page": p}, err)
}

func (h *Handler) deletePage(c *gin.Context) {
	id := c.Param("id")
	err := h.store.DeletePage(c.Request.Context(), id, actor(c))
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id}, err)
}

func (h *Handler) recentPages(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.RecentPages(intQuery(c, "limit", 10)))
}

func (h *Handler) searchPages(c *gin.Context) {
	q := c.Query("q")
	c.JSON(http.StatusOK, gin.H{"query": q, "results": h.store.SearchPages(q)})
}

func (h *Handler) sections(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Sections())
}

func (h *Handler) breadcrumbs(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	c.JSON(http.StatusOK, h.store.Breadcrumbs(path))
}

func (h *Handler) contributions(c *gin.Context) {
	created, edits := h.store.Contributions(c.Param("username"))
	c.JSON(http.StatusOK, gin.H{"created": created, "edited": edits})
}
