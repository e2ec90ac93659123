package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/safety/rules"
)

type HealthHandler struct {
	store *rules.Store
}

func NewHealthHandler(store *rules.Store) *HealthHandler { return &HealthHandler{store: store} }

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Readyz resolves the rule chain. The chain always ends in the built-in set,
// so this only fails when no rules compile at all.
func (h *HealthHandler) Readyz(c *gin.Context) {
	snap := h.store.Current(c.Request.Context())
	if len(snap.Compiled) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no rules", "origin": snap.Origin})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "origin": snap.Origin, "rules": len(snap.Compiled)})
}
