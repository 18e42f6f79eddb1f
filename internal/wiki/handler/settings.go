package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gowiki/gowiki/internal/wiki"
)

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.GetSettings())
}

func (h *Handler) updateSettings(c *gin.Context) {
	var patch wiki.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.store.UpdateSettings(c.Request.Context(), patch, actor(c))
	respond(c, http.StatusOK, gin.H{"settings": s}, err)
}
