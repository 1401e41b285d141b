package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/services"
)

const defaultRunsLimit = 20

type TargetHandler struct {
	targetService    *services.TargetService
	schedulerService *services.SchedulerService
}

func NewTargetHandler(targetService *services.TargetService, schedulerService *services.SchedulerService) *TargetHandler {
	return &TargetHandler{
		targetService:    targetService,
		schedulerService: schedulerService,
	}
}

// ListTargets returns every tracked repository
func (h *TargetHandler) ListTargets(c *gin.Context) {
	targets, err := h.targetService.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets})
}

// ListRuns returns the most recent sync runs of a tracked repository
func (h *TargetHandler) ListRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, &models.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := h.targetService.Runs(c.Param("owner"), c.Param("repo"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

type trackRequest struct {
	Repository string `json:"repository" binding:"required"`
	Enterprise bool   `json:"enterprise"`
}

// TrackTarget starts tracking the repository named in the body ("owner/name")
func (h *TargetHandler) TrackTarget(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "repository is required"})
		return
	}

	owner, name, err := models.ParseFullName(req.Repository)
	if err != nil {
		respondError(c, err)
		return
	}

	target, created, err := h.targetService.Track(c.Request.Context(), owner, name, req.Enterprise)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, target)
}

// SyncTarget runs one sync cycle for a tracked repository
func (h *TargetHandler) SyncTarget(c *gin.Context) {
	run, err := h.schedulerService.SyncOne(c.Request.Context(), c.Param("owner"), c.Param("repo"))
	if err != nil && run == nil {
		respondError(c, err)
		return
	}
	// a failed cycle is still recorded as a run
	c.JSON(http.StatusOK, run)
}

// SeedContributors backfills every listed contributor that has no aggregate yet
func (h *TargetHandler) SeedContributors(c *gin.Context) {
	result, err := h.targetService.SeedContributors(c.Request.Context(), c.Param("owner"), c.Param("repo"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
