package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

const maxInlineSections = 5000

type schedulePreviewResponse struct {
	Mode     string                        `json:"mode"`
	Proposal *dto.GenerateScheduleResponse `json:"proposal"`
}

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	Save(ctx context.Context, req dto.SaveScheduleRequest, actorID string) (*dto.SaveScheduleResponse, error)
	List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error)
	GetRun(ctx context.Context, runID string) (*dto.ScheduleRunDetail, error)
	Delete(ctx context.Context, runID string) error
	Publish(ctx context.Context, runID string) (*models.ScheduleRun, error)
	RoomTimetable(ctx context.Context, runID string) ([]scheduler.RoomSchedule, error)
	TeacherSchedule(ctx context.Context, runID, teacherID string) ([]scheduler.Session, error)
	SectionSchedule(ctx context.Context, runID, sectionID string) ([]scheduler.Session, error)
	StudentSchedule(ctx context.Context, runID, studentID string) ([]scheduler.Session, error)
	Unplaced(ctx context.Context, runID string) (*dto.UnplacedView, error)
	Utilization(ctx context.Context, runID string) ([]scheduler.RoomUtilization, error)
	Verify(ctx context.Context, runID string) (*dto.VerificationView, error)
}

// ScheduleGeneratorHandler exposes scheduler endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc scheduleGenerator) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Generate timetable proposal (legacy endpoint)
// @Description Legacy path kept for the UI. Prefer /schedules/generator for new integrations.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	h.handleGenerate(c)
}

// GenerateAlias godoc
// @Summary Generate timetable proposal (canonical alias)
// @Description Runs the greedy placement engine. Partial results return 200 with status PartialWithUnplaced.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/generator [post]
func (h *ScheduleGeneratorHandler) GenerateAlias(c *gin.Context) {
	h.handleGenerate(c)
}

// Save godoc
// @Summary Save a proposal as a schedule run
// @Tags Scheduler
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SaveScheduleRequest true "Save schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /schedules/save [post]
func (h *ScheduleGeneratorHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	saved, err := h.service.Save(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, saved)
}

// List godoc
// @Summary List schedule runs, newest version first
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Param status query string false "DRAFT, PUBLISHED or ARCHIVED"
// @Param limit query int false "Maximum runs (default 20)"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs [get]
func (h *ScheduleGeneratorHandler) List(c *gin.Context) {
	var query dto.ScheduleRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	runs, err := h.service.List(c.Request.Context(), query)
	respondList(c, runs, err)
}

// Get godoc
// @Summary Get a schedule run with its timetable
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/runs/{id} [get]
func (h *ScheduleGeneratorHandler) Get(c *gin.Context) {
	detail, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	respondOK(c, detail, err)
}

// Delete godoc
// @Summary Delete draft schedule run
// @Tags Scheduler
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schedules/runs/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish a schedule run
// @Description Archives the previously published run.
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/publish [post]
func (h *ScheduleGeneratorHandler) Publish(c *gin.Context) {
	run, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	respondOK(c, run, err)
}

// Rooms godoc
// @Summary Per-room timetable of a run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/rooms [get]
func (h *ScheduleGeneratorHandler) Rooms(c *gin.Context) {
	rooms, err := h.service.RoomTimetable(c.Request.Context(), c.Param("id"))
	respondList(c, rooms, err)
}

// Teacher godoc
// @Summary Teacher schedule within a run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/teachers/{teacherId} [get]
func (h *ScheduleGeneratorHandler) Teacher(c *gin.Context) {
	sessions, err := h.service.TeacherSchedule(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	respondList(c, sessions, err)
}

// Section godoc
// @Summary Section schedule within a run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/sections/{sectionId} [get]
func (h *ScheduleGeneratorHandler) Section(c *gin.Context) {
	sessions, err := h.service.SectionSchedule(c.Request.Context(), c.Param("id"), c.Param("sectionId"))
	respondList(c, sessions, err)
}

// Student godoc
// @Summary Student schedule within a run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/students/{studentId} [get]
func (h *ScheduleGeneratorHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	studentID := c.Param("studentId")
	if claims != nil && claims.Role == models.RoleStudent && claims.UserID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	sessions, err := h.service.StudentSchedule(c.Request.Context(), c.Param("id"), studentID)
	respondList(c, sessions, err)
}

// Unplaced godoc
// @Summary Sessions a run could not place
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/unplaced [get]
func (h *ScheduleGeneratorHandler) Unplaced(c *gin.Context) {
	view, err := h.service.Unplaced(c.Request.Context(), c.Param("id"))
	respondOK(c, view, err)
}

// Utilization godoc
// @Summary Room utilization of a run
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/utilization [get]
func (h *ScheduleGeneratorHandler) Utilization(c *gin.Context) {
	rooms, err := h.service.Utilization(c.Request.Context(), c.Param("id"))
	respondList(c, rooms, err)
}

// Verify godoc
// @Summary Re-check a run against every hard constraint
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/runs/{id}/verify [get]
func (h *ScheduleGeneratorHandler) Verify(c *gin.Context) {
	view, err := h.service.Verify(c.Request.Context(), c.Param("id"))
	respondOK(c, view, err)
}

func (h *ScheduleGeneratorHandler) handleGenerate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
			return
		}
	}
	if req.Catalog != nil && len(req.Catalog.Sections) > maxInlineSections {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "catalog sections exceed supported limit"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedulePreviewResponse{Mode: "preview", Proposal: result})
}

func respondOK(c *gin.Context, data interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data)
}
