// internal/api/status.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/reader-provisioner/internal/monitor"
)

// StatusSource exposes heartbeat state.
type StatusSource interface {
	Snapshots() []monitor.ReaderState
}

type StatusHandler struct {
	src StatusSource
}

func NewStatusHandler(src StatusSource) *StatusHandler {
	return &StatusHandler{src: src}
}

// GET /api/readers/status
func (h *StatusHandler) Readers(c *gin.Context) {
	c.JSON(http.StatusOK, h.src.Snapshots())
}

// GET /healthz
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
