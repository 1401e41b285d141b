package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/workers"
)

// WorkerStatusReporter reports background worker state
type WorkerStatusReporter interface {
	GetWorkerStatus() map[string]workers.WorkerStatus
}

type HealthHandler struct {
	workers WorkerStatusReporter
}

func NewHealthHandler(workers WorkerStatusReporter) *HealthHandler {
	return &HealthHandler{workers: workers}
}

// Health reports liveness and worker state
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"workers": h.workers.GetWorkerStatus(),
	})
}
