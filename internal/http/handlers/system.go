package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"userserve/internal/store"
)

// System handles liveness and store-connectivity checks.
type System struct {
	Store store.Store
}

// GET /api/health
func (h *System) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/db-check
func (h *System) DBCheck(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "Store unreachable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
