package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/arch3d/internal/process"
	"github.com/gin-gonic/gin"
)

// StatusSource reports the state of every stage channel.
type StatusSource interface {
	Status() []process.State
}

// Handlers serves the read-only status endpoints.
type Handlers struct {
	source  StatusSource
	started time.Time
}

// NewHandlers creates the status handlers.
func NewHandlers(source StatusSource) *Handlers {
	return &Handlers{source: source, started: time.Now()}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Stages lists loading and progress for every stage.
func (h *Handlers) Stages(c *gin.Context) {
	states := h.source.Status()
	loading := false
	for _, s := range states {
		loading = loading || s.Loading
	}
	c.JSON(http.StatusOK, gin.H{
		"stages":  states,
		"loading": loading,
	})
}

// Stage reports a single stage by name.
func (h *Handlers) Stage(c *gin.Context) {
	name := c.Param("stage")
	for _, s := range h.source.Status() {
		if s.Endpoint == name {
			c.JSON(http.StatusOK, s)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "unknown stage: " + name})
}
