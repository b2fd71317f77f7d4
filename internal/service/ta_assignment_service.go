package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/tamatch"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type scholarStore interface {
	List(ctx context.Context) ([]models.ResearchScholar, error)
	Create(ctx context.Context, exec sqlx.ExtContext, scholar *models.ResearchScholar) error
}

type taAssignmentStore interface {
	List(ctx context.Context) ([]models.TAAssignment, error)
	Replace(ctx context.Context, exec sqlx.ExtContext, items []models.TAAssignment) error
}

type courseLister interface {
	List(ctx context.Context) ([]models.Course, error)
}

// TAAssignmentService manages research scholars and matches them to courses as TAs.
type TAAssignmentService struct {
	scholars    scholarStore
	assignments taAssignmentStore
	courses     courseLister
	tx          txProvider
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewTAAssignmentService wires the TA service.
func NewTAAssignmentService(
	scholars scholarStore,
	assignments taAssignmentStore,
	courses courseLister,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *TAAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TAAssignmentService{
		scholars:    scholars,
		assignments: assignments,
		courses:     courses,
		tx:          tx,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// ListScholars returns every scholar with TA eligibility.
func (s *TAAssignmentService) ListScholars(ctx context.Context) ([]models.ResearchScholar, error) {
	scholars, err := s.scholars.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list research scholars")
	}
	return nonNil(scholars), nil
}

// CreateScholar registers a scholar. Every eligible course must already exist.
func (s *TAAssignmentService) CreateScholar(ctx context.Context, req dto.CreateScholarRequest) (*models.ResearchScholar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid research scholar payload")
	}
	known, err := s.courseNames(ctx)
	if err != nil {
		return nil, err
	}
	courseIDs := dedupe(req.TACourseIDs)
	for _, courseID := range courseIDs {
		if _, ok := known[courseID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s does not exist", courseID))
		}
	}

	scholar := models.ResearchScholar{
		ID:          strings.TrimSpace(req.ID),
		FullName:    strings.TrimSpace(req.FullName),
		TACourseIDs: courseIDs,
	}
	if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.scholars.Create(ctx, tx, &scholar)
	}); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("research scholar %s already exists", scholar.ID))
		}
		s.logger.Error("research scholar write failed", zap.String("id", scholar.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create research scholar")
	}
	return &scholar, nil
}

// BulkCreateScholars imports scholars row by row. Rejected rows are reported
// under Failed; internal errors abort the import.
func (s *TAAssignmentService) BulkCreateScholars(ctx context.Context, req dto.BulkScholarRequest) (*dto.BulkScholarResponse, error) {
	if len(req.Scholars) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scholars must not be empty")
	}
	added := make([]models.ResearchScholar, 0, len(req.Scholars))
	failed := make([]models.BulkFailure, 0)
	for i, item := range req.Scholars {
		if err := s.validator.Struct(item); err != nil {
			failed = append(failed, models.BulkFailure{Index: i, ID: item.ID, Reason: validationReason(err)})
			continue
		}
		scholar, err := s.CreateScholar(ctx, item)
		if err != nil {
			appErr := appErrors.FromError(err)
			if appErr.Status >= http.StatusInternalServerError {
				return nil, appErr
			}
			failed = append(failed, models.BulkFailure{Index: i, ID: item.ID, Reason: appErr.Message})
			continue
		}
		added = append(added, *scholar)
	}
	s.logger.Info("research scholars imported", zap.Int("added", len(added)), zap.Int("failed", len(failed)))
	return &dto.BulkScholarResponse{Added: added, Failed: failed}, nil
}

// ListAssignments returns the stored matching.
func (s *TAAssignmentService) ListAssignments(ctx context.Context) ([]models.TAAssignment, error) {
	items, err := s.assignments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ta assignments")
	}
	return nonNil(items), nil
}

// Generate matches scholars to courses, one TA per course and one course per
// scholar, and replaces the stored matching with the result.
func (s *TAAssignmentService) Generate(ctx context.Context) (*dto.TAAssignmentResponse, error) {
	scholars, err := s.scholars.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list research scholars")
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	courseIDs := make([]string, 0, len(courses))
	courseNames := make(map[string]string, len(courses))
	for _, course := range courses {
		courseIDs = append(courseIDs, course.ID)
		courseNames[course.ID] = course.Name
	}
	candidates := make([]tamatch.Candidate, 0, len(scholars))
	scholarNames := make(map[string]string, len(scholars))
	for _, scholar := range scholars {
		candidates = append(candidates, tamatch.Candidate{ID: scholar.ID, CourseIDs: scholar.TACourseIDs})
		scholarNames[scholar.ID] = scholar.FullName
	}

	matching := tamatch.Match(candidates, courseIDs)

	assignedAt := s.now().UTC()
	items := make([]models.TAAssignment, 0, len(matching.Pairs))
	for _, pair := range matching.Pairs {
		items = append(items, models.TAAssignment{
			CourseID:    pair.CourseID,
			CourseName:  courseNames[pair.CourseID],
			ScholarID:   pair.CandidateID,
			ScholarName: scholarNames[pair.CandidateID],
			AssignedAt:  assignedAt,
		})
	}
	if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.assignments.Replace(ctx, tx, items)
	}); err != nil {
		s.logger.Error("failed to store ta assignments", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ta assignments")
	}

	resp := &dto.TAAssignmentResponse{
		Assignments:       items,
		UnmatchedScholars: make([]dto.TAUnmatched, 0, len(matching.UnmatchedCandidates)),
		UnmatchedCourses:  make([]dto.TAUnmatched, 0, len(matching.UnmatchedCourses)),
	}
	for _, id := range matching.UnmatchedCandidates {
		resp.UnmatchedScholars = append(resp.UnmatchedScholars, dto.TAUnmatched{ID: id, Name: scholarNames[id]})
	}
	for _, id := range matching.UnmatchedCourses {
		resp.UnmatchedCourses = append(resp.UnmatchedCourses, dto.TAUnmatched{ID: id, Name: courseNames[id]})
	}
	s.logger.Info("ta assignments generated",
		zap.Int("assigned", len(items)),
		zap.Int("unmatched_scholars", len(resp.UnmatchedScholars)),
		zap.Int("unmatched_courses", len(resp.UnmatchedCourses)),
	)
	return resp, nil
}

func (s *TAAssignmentService) courseNames(ctx context.Context) (map[string]string, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	names := make(map[string]string, len(courses))
	for _, course := range courses {
		names[course.ID] = course.Name
	}
	return names, nil
}

func (s *TAAssignmentService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
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
