package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Health tracks the probe state. The process is alive from the start;
// readiness flips true once the model has been loaded.
type Health struct {
	alive atomic.Bool
	ready atomic.Bool
}

func NewHealth() *Health {
	h := &Health{}
	h.alive.Store(true)
	return h
}

func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Health) SetAlive(alive bool) {
	h.alive.Store(alive)
}

// LiveCheck handles GET /live_check.
func (h *Handler) LiveCheck(c *gin.Context) {
	if !h.health.alive.Load() {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadyCheck handles GET /ready_check. 503 until the model is loaded.
func (h *Handler) ReadyCheck(c *gin.Context) {
	if !h.health.ready.Load() {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// HealthCheck handles GET /health, kept as a liveness alias.
func (h *Handler) HealthCheck(c *gin.Context) {
	h.LiveCheck(c)
}
