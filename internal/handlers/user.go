package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type UserHandler struct {
	mirrorService       *services.MirrorService
	contributionService *services.ContributionService
	summaryService      *services.SummaryService
	exportService       *services.ExportService
}

func NewUserHandler(mirrorService *services.MirrorService, contributionService *services.ContributionService,
	summaryService *services.SummaryService, exportService *services.ExportService) *UserHandler {
	return &UserHandler{
		mirrorService:       mirrorService,
		contributionService: contributionService,
		summaryService:      summaryService,
		exportService:       exportService,
	}
}

// enterpriseParam reads the optional ?enterprise= flag
func enterpriseParam(c *gin.Context) (bool, error) {
	raw := c.Query("enterprise")
	if raw == "" {
		return false, nil
	}
	enterprise, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &models.ValidationError{Field: "enterprise", Message: "must be true or false"}
	}
	return enterprise, nil
}

// GetUser resolves a user query to a contributor profile
func (h *UserHandler) GetUser(c *gin.Context) {
	enterprise, err := enterpriseParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	contributor, err := h.mirrorService.ResolveContributor(c.Request.Context(), c.Param("user"), enterprise)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, contributor)
}

// GetContributions returns a user's contribution calendar
func (h *UserHandler) GetContributions(c *gin.Context) {
	enterprise, err := enterpriseParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	calendar, err := h.contributionService.Calendar(c.Request.Context(), c.Param("user"), enterprise)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calendar)
}

// aggregate loads the requested user's aggregate, backfilling it on first request
func (h *UserHandler) aggregate(c *gin.Context) (*models.Aggregate, bool) {
	enterprise, err := enterpriseParam(c)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	agg, err := h.mirrorService.EnsureSynced(c.Request.Context(), c.Param("user"), c.Param("owner"), c.Param("repo"), enterprise)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return agg, true
}

// GetAggregate returns the user's full activity document for a repository
func (h *UserHandler) GetAggregate(c *gin.Context) {
	agg, ok := h.aggregate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, agg)
}

// GetSummary returns summary statistics over the user's activity on a repository
func (h *UserHandler) GetSummary(c *gin.Context) {
	agg, ok := h.aggregate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.summaryService.Summarize(agg))
}

// ExportAggregate downloads the user's activity on a repository as a workbook
func (h *UserHandler) ExportAggregate(c *gin.Context) {
	agg, ok := h.aggregate(c)
	if !ok {
		return
	}

	buf, err := h.exportService.Export(agg)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exportService.FileName(agg)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
