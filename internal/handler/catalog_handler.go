package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type catalogManager interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error)
	BulkCreateRooms(ctx context.Context, req dto.BulkRoomRequest) (*dto.BulkRoomResponse, error)
	ListTimeslots(ctx context.Context) ([]models.Timeslot, error)
	CreateTimeslot(ctx context.Context, req dto.CreateTimeslotRequest) (*models.Timeslot, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error)
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error)
	BulkCreateTeachers(ctx context.Context, req dto.BulkTeacherRequest) (*dto.BulkTeacherResponse, error)
	ListSections(ctx context.Context) ([]models.Section, error)
	CreateSection(ctx context.Context, req dto.CreateSectionRequest) (*models.Section, error)
}

// CatalogHandler exposes rooms, timeslots, courses, teachers and sections.
type CatalogHandler struct {
	service catalogManager
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogManager) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListRooms godoc
// @Summary List rooms
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	respondList(c, rooms, err)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms [post]
func (h *CatalogHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if !bindJSON(c, &req, "invalid room payload") {
		return
	}
	room, err := h.service.CreateRoom(c.Request.Context(), req)
	respondCreated(c, room, err)
}

// BulkCreateRooms godoc
// @Summary Import rooms
// @Description Rows are imported independently; rejected rows are listed under failed.
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkRoomRequest true "Rooms"
// @Success 200 {object} response.Envelope
// @Router /rooms/bulk [post]
func (h *CatalogHandler) BulkCreateRooms(c *gin.Context) {
	var req dto.BulkRoomRequest
	if !bindJSON(c, &req, "invalid bulk room payload") {
		return
	}
	result, err := h.service.BulkCreateRooms(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"added":  len(result.Added),
		"failed": len(result.Failed),
	})
}

// ListTimeslots godoc
// @Summary List timeslots
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *CatalogHandler) ListTimeslots(c *gin.Context) {
	slots, err := h.service.ListTimeslots(c.Request.Context())
	respondList(c, slots, err)
}

// CreateTimeslot godoc
// @Summary Create timeslot
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTimeslotRequest true "Timeslot payload"
// @Success 201 {object} response.Envelope
// @Router /timeslots [post]
func (h *CatalogHandler) CreateTimeslot(c *gin.Context) {
	var req dto.CreateTimeslotRequest
	if !bindJSON(c, &req, "invalid timeslot payload") {
		return
	}
	slot, err := h.service.CreateTimeslot(c.Request.Context(), req)
	respondCreated(c, slot, err)
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, err := h.service.ListCourses(c.Request.Context())
	respondList(c, courses, err)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), req)
	respondCreated(c, course, err)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *CatalogHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	respondList(c, teachers, err)
}

// CreateTeacher godoc
// @Summary Create teacher
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers [post]
func (h *CatalogHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.service.CreateTeacher(c.Request.Context(), req)
	respondCreated(c, teacher, err)
}

// BulkCreateTeachers godoc
// @Summary Import teachers
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkTeacherRequest true "Teachers"
// @Success 200 {object} response.Envelope
// @Router /teachers/bulk [post]
func (h *CatalogHandler) BulkCreateTeachers(c *gin.Context) {
	var req dto.BulkTeacherRequest
	if !bindJSON(c, &req, "invalid bulk teacher payload") {
		return
	}
	result, err := h.service.BulkCreateTeachers(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"added":  len(result.Added),
		"failed": len(result.Failed),
	})
}

// ListSections godoc
// @Summary List sections
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *CatalogHandler) ListSections(c *gin.Context) {
	sections, err := h.service.ListSections(c.Request.Context())
	respondList(c, sections, err)
}

// CreateSection godoc
// @Summary Create section
// @Description The teacher must be qualified for the course.
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sections [post]
func (h *CatalogHandler) CreateSection(c *gin.Context) {
	var req dto.CreateSectionRequest
	if !bindJSON(c, &req, "invalid section payload") {
		return
	}
	section, err := h.service.CreateSection(c.Request.Context(), req)
	respondCreated(c, section, err)
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func respondList[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

func respondCreated(c *gin.Context, item interface{}, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}
