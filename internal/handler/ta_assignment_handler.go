package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type taAssigner interface {
	ListScholars(ctx context.Context) ([]models.ResearchScholar, error)
	CreateScholar(ctx context.Context, req dto.CreateScholarRequest) (*models.ResearchScholar, error)
	BulkCreateScholars(ctx context.Context, req dto.BulkScholarRequest) (*dto.BulkScholarResponse, error)
	ListAssignments(ctx context.Context) ([]models.TAAssignment, error)
	Generate(ctx context.Context) (*dto.TAAssignmentResponse, error)
}

// TAAssignmentHandler exposes research scholars and TA matching.
type TAAssignmentHandler struct {
	service taAssigner
}

// NewTAAssignmentHandler constructs the handler.
func NewTAAssignmentHandler(svc taAssigner) *TAAssignmentHandler {
	return &TAAssignmentHandler{service: svc}
}

// ListScholars godoc
// @Summary List research scholars
// @Tags TeachingAssistants
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /research-scholars [get]
func (h *TAAssignmentHandler) ListScholars(c *gin.Context) {
	scholars, err := h.service.ListScholars(c.Request.Context())
	respondList(c, scholars, err)
}

// CreateScholar godoc
// @Summary Create research scholar
// @Tags TeachingAssistants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateScholarRequest true "Scholar payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /research-scholars [post]
func (h *TAAssignmentHandler) CreateScholar(c *gin.Context) {
	var req dto.CreateScholarRequest
	if !bindJSON(c, &req, "invalid research scholar payload") {
		return
	}
	scholar, err := h.service.CreateScholar(c.Request.Context(), req)
	respondCreated(c, scholar, err)
}

// BulkCreateScholars godoc
// @Summary Import research scholars
// @Tags TeachingAssistants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkScholarRequest true "Scholars"
// @Success 200 {object} response.Envelope
// @Router /research-scholars/bulk [post]
func (h *TAAssignmentHandler) BulkCreateScholars(c *gin.Context) {
	var req dto.BulkScholarRequest
	if !bindJSON(c, &req, "invalid bulk scholar payload") {
		return
	}
	result, err := h.service.BulkCreateScholars(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"added":  len(result.Added),
		"failed": len(result.Failed),
	})
}

// ListAssignments godoc
// @Summary List TA assignments
// @Tags TeachingAssistants
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /ta-assignments [get]
func (h *TAAssignmentHandler) ListAssignments(c *gin.Context) {
	items, err := h.service.ListAssignments(c.Request.Context())
	respondList(c, items, err)
}

// Generate godoc
// @Summary Match research scholars to courses
// @Description Replaces the stored assignments with a maximum one-to-one matching.
// @Tags TeachingAssistants
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /ta-assignments/generate [post]
func (h *TAAssignmentHandler) Generate(c *gin.Context) {
	result, err := h.service.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"assigned":          len(result.Assignments),
		"unmatchedScholars": len(result.UnmatchedScholars),
		"unmatchedCourses":  len(result.UnmatchedCourses),
	})
}
