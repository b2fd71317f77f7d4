package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type roomStore interface {
	List(ctx context.Context) ([]models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	BulkCreate(ctx context.Context, rooms []models.Room) ([]models.Room, []models.BulkFailure, error)
}

type timeslotStore interface {
	List(ctx context.Context) ([]models.Timeslot, error)
	Create(ctx context.Context, slot *models.Timeslot) error
}

type courseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
}

type teacherStore interface {
	List(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
}

type sectionStore interface {
	List(ctx context.Context) ([]models.Section, error)
	Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error
}

// CatalogService manages the scheduling catalog: rooms, timeslots, courses, teachers and sections.
type CatalogService struct {
	rooms     roomStore
	timeslots timeslotStore
	courses   courseStore
	teachers  teacherStore
	sections  sectionStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService wires catalog repositories.
func NewCatalogService(
	rooms roomStore,
	timeslots timeslotStore,
	courses courseStore,
	teachers teacherStore,
	sections sectionStore,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		rooms:     rooms,
		timeslots: timeslots,
		courses:   courses,
		teachers:  teachers,
		sections:  sections,
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
}

// ListRooms returns all rooms.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return nonNil(rooms), nil
}

// CreateRoom registers a single room.
func (s *CatalogService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	room := roomFromRequest(req)
	if err := s.rooms.Create(ctx, &room); err != nil {
		return nil, s.mapWriteError(err, "room", room.ID)
	}
	return &room, nil
}

// BulkCreateRooms imports rooms row by row. Invalid or duplicate rows are reported
// in the failed list and do not block the remaining rows.
func (s *CatalogService) BulkCreateRooms(ctx context.Context, req dto.BulkRoomRequest) (*dto.BulkRoomResponse, error) {
	if len(req.Rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rooms must not be empty")
	}
	failed := make([]models.BulkFailure, 0)
	valid := make([]models.Room, 0, len(req.Rooms))
	origin := make([]int, 0, len(req.Rooms))
	for i, item := range req.Rooms {
		if err := s.validator.Struct(item); err != nil {
			failed = append(failed, models.BulkFailure{Index: i, ID: item.ID, Reason: validationReason(err)})
			continue
		}
		valid = append(valid, roomFromRequest(item))
		origin = append(origin, i)
	}

	added, rejected, err := s.rooms.BulkCreate(ctx, valid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import rooms")
	}
	for _, item := range rejected {
		item.Index = origin[item.Index]
		failed = append(failed, item)
	}
	s.logger.Info("rooms imported", zap.Int("added", len(added)), zap.Int("failed", len(failed)))
	return &dto.BulkRoomResponse{Added: added, Failed: failed}, nil
}

// ListTimeslots returns the weekly grid.
func (s *CatalogService) ListTimeslots(ctx context.Context) ([]models.Timeslot, error) {
	slots, err := s.timeslots.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timeslots")
	}
	return nonNil(slots), nil
}

// CreateTimeslot registers a slot after normalising the day and times.
func (s *CatalogService) CreateTimeslot(ctx context.Context, req dto.CreateTimeslotRequest) (*models.Timeslot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timeslot payload")
	}
	day, err := scheduler.ParseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	start, err := scheduler.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	end, err := scheduler.ParseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}

	slot := models.Timeslot{
		ID:        strings.TrimSpace(req.ID),
		DayOfWeek: int(day),
		StartTime: start.String(),
		EndTime:   end.String(),
		IsBreak:   req.IsBreak,
	}
	if err := s.timeslots.Create(ctx, &slot); err != nil {
		return nil, s.mapWriteError(err, "timeslot", slot.ID)
	}
	return &slot, nil
}

// ListCourses returns all courses.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return nonNil(courses), nil
}

// CreateCourse registers a course.
func (s *CatalogService) CreateCourse(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := models.Course{
		ID:               strings.TrimSpace(req.ID),
		Name:             strings.TrimSpace(req.Name),
		RequiredSessions: req.RequiredSessions,
		Credits:          req.Credits,
	}
	if err := s.courses.Create(ctx, &course); err != nil {
		return nil, s.mapWriteError(err, "course", course.ID)
	}
	return &course, nil
}

// ListTeachers returns all teachers with qualifications.
func (s *CatalogService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return nonNil(teachers), nil
}

// CreateTeacher registers a teacher; every teachable course must exist.
func (s *CatalogService) CreateTeacher(ctx context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	for _, courseID := range req.TeachableCourseIDs {
		if err := s.ensureCourse(ctx, courseID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureTimeslots(ctx, req.UnavailableSlotIDs); err != nil {
		return nil, err
	}

	teacher := models.Teacher{
		ID:                 strings.TrimSpace(req.ID),
		FullName:           strings.TrimSpace(req.FullName),
		Email:              req.Email,
		Active:             true,
		TeachableCourseIDs: dedupe(req.TeachableCourseIDs),
		UnavailableSlotIDs: dedupe(req.UnavailableSlotIDs),
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.teachers.Create(ctx, tx, &teacher)
	})
	if err != nil {
		return nil, s.mapWriteError(err, "teacher", teacher.ID)
	}
	return &teacher, nil
}

// BulkCreateTeachers imports teachers one transaction at a time. Rows that fail
// validation or conflict are reported under Failed; internal errors abort the import.
func (s *CatalogService) BulkCreateTeachers(ctx context.Context, req dto.BulkTeacherRequest) (*dto.BulkTeacherResponse, error) {
	if len(req.Teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teachers must not be empty")
	}
	added := make([]models.Teacher, 0, len(req.Teachers))
	failed := make([]models.BulkFailure, 0)
	for i, item := range req.Teachers {
		if err := s.validator.Struct(item); err != nil {
			failed = append(failed, models.BulkFailure{Index: i, ID: item.ID, Reason: validationReason(err)})
			continue
		}
		teacher, err := s.CreateTeacher(ctx, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Status >= http.StatusInternalServerError {
				return nil, appErr
			}
			failed = append(failed, models.BulkFailure{Index: i, ID: item.ID, Reason: appErr.Message})
			continue
		}
		added = append(added, *teacher)
	}
	s.logger.Info("teachers imported", zap.Int("added", len(added)), zap.Int("failed", len(failed)))
	return &dto.BulkTeacherResponse{Added: added, Failed: failed}, nil
}

// ListSections returns all sections with rosters.
func (s *CatalogService) ListSections(ctx context.Context) ([]models.Section, error) {
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return nonNil(sections), nil
}

// CreateSection registers a section. The assigned teacher must be qualified for the course.
func (s *CatalogService) CreateSection(ctx context.Context, req dto.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if err := s.ensureCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not exist", req.TeacherID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !contains(teacher.TeachableCourseIDs, req.CourseID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s is not qualified to teach %s", req.TeacherID, req.CourseID))
	}

	section := models.Section{
		ID:            strings.TrimSpace(req.ID),
		CourseID:      req.CourseID,
		TeacherID:     req.TeacherID,
		EnrolledCount: req.EnrolledCount,
		StudentIDs:    req.StudentIDs,
	}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.sections.Create(ctx, tx, &section)
	})
	if err != nil {
		return nil, s.mapWriteError(err, "section", section.ID)
	}
	return &section, nil
}

// Snapshot loads the whole catalog as scheduler input.
func (s *CatalogService) Snapshot(ctx context.Context) (scheduler.Input, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	slots, err := s.timeslots.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeslots")
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	sections, err := s.sections.List(ctx)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	input, err := BuildSchedulerInput(rooms, slots, courses, teachers, sections)
	if err != nil {
		return scheduler.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored catalog is malformed")
	}
	return input, nil
}

// BuildSchedulerInput converts stored catalog rows into engine input.
func BuildSchedulerInput(rooms []models.Room, slots []models.Timeslot, courses []models.Course, teachers []models.Teacher, sections []models.Section) (scheduler.Input, error) {
	input := scheduler.Input{
		Rooms:     make([]scheduler.Room, 0, len(rooms)),
		Timeslots: make([]scheduler.Timeslot, 0, len(slots)),
		Courses:   make([]scheduler.Course, 0, len(courses)),
		Teachers:  make([]scheduler.Teacher, 0, len(teachers)),
		Sections:  make([]scheduler.Section, 0, len(sections)),
	}
	for _, room := range rooms {
		input.Rooms = append(input.Rooms, scheduler.Room{ID: room.ID, Capacity: room.Capacity})
	}
	for _, slot := range slots {
		start, err := scheduler.ParseClock(slot.StartTime)
		if err != nil {
			return scheduler.Input{}, fmt.Errorf("timeslot %s: %w", slot.ID, err)
		}
		end, err := scheduler.ParseClock(slot.EndTime)
		if err != nil {
			return scheduler.Input{}, fmt.Errorf("timeslot %s: %w", slot.ID, err)
		}
		input.Timeslots = append(input.Timeslots, scheduler.Timeslot{
			ID:      slot.ID,
			Day:     scheduler.Weekday(slot.DayOfWeek),
			Start:   start,
			End:     end,
			IsBreak: slot.IsBreak,
		})
	}
	for _, course := range courses {
		input.Courses = append(input.Courses, scheduler.Course{
			ID:               course.ID,
			Name:             course.Name,
			RequiredSessions: course.RequiredSessions,
			Credits:          course.Credits,
		})
	}
	for _, teacher := range teachers {
		input.Teachers = append(input.Teachers, scheduler.Teacher{
			ID:                 teacher.ID,
			Name:               teacher.FullName,
			TeachableCourseIDs: teacher.TeachableCourseIDs,
			UnavailableSlotIDs: teacher.UnavailableSlotIDs,
		})
	}
	for _, section := range sections {
		input.Sections = append(input.Sections, scheduler.Section{
			ID:            section.ID,
			CourseID:      section.CourseID,
			TeacherID:     section.TeacherID,
			StudentIDs:    section.StudentIDs,
			EnrolledCount: section.EnrolledCount,
		})
	}
	return input, nil
}

func (s *CatalogService) ensureCourse(ctx context.Context, courseID string) error {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s does not exist", courseID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return nil
}

func (s *CatalogService) ensureTimeslots(ctx context.Context, slotIDs []string) error {
	if len(slotIDs) == 0 {
		return nil
	}
	slots, err := s.timeslots.List(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timeslots")
	}
	known := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		known[slot.ID] = struct{}{}
	}
	for _, id := range dedupe(slotIDs) {
		if _, ok := known[id]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("timeslot %s does not exist", id))
		}
	}
	return nil
}

func (s *CatalogService) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *CatalogService) mapWriteError(err error, entity, id string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if repository.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s already exists", entity, id))
	}
	s.logger.Error("catalog write failed", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to create %s", entity))
}

func roomFromRequest(req dto.CreateRoomRequest) models.Room {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.ID)
	}
	return models.Room{ID: strings.TrimSpace(req.ID), Name: name, Capacity: req.Capacity, Building: req.Building}
}

func validationReason(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Sprintf("%s failed %s", strings.ToLower(first.Field()), first.Tag())
	}
	return err.Error()
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
