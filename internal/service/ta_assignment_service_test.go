package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type scholarStoreStub struct {
	items []models.ResearchScholar
}

func (s *scholarStoreStub) List(context.Context) ([]models.ResearchScholar, error) {
	return s.items, nil
}

func (s *scholarStoreStub) Create(_ context.Context, _ sqlx.ExtContext, scholar *models.ResearchScholar) error {
	for _, item := range s.items {
		if item.ID == scholar.ID {
			return uniqueViolation
		}
	}
	s.items = append(s.items, *scholar)
	return nil
}

type taAssignmentStoreStub struct {
	stored     []models.TAAssignment
	replaceErr error
	replaced   int
}

func (s *taAssignmentStoreStub) List(context.Context) ([]models.TAAssignment, error) {
	return s.stored, nil
}

func (s *taAssignmentStoreStub) Replace(_ context.Context, _ sqlx.ExtContext, items []models.TAAssignment) error {
	s.replaced++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.stored = append([]models.TAAssignment(nil), items...)
	return nil
}

type taFixture struct {
	scholars    *scholarStoreStub
	assignments *taAssignmentStoreStub
	courses     *courseStoreStub
	service     *TAAssignmentService
}

func newTAFixture(t *testing.T, tx txProvider) *taFixture {
	t.Helper()
	fx := &taFixture{
		scholars:    &scholarStoreStub{},
		assignments: &taAssignmentStoreStub{},
		courses: &courseStoreStub{items: []models.Course{
			{ID: "CS101", Name: "Intro to CS", RequiredSessions: 2},
			{ID: "MA201", Name: "Linear Algebra", RequiredSessions: 2},
			{ID: "PH110", Name: "Mechanics", RequiredSessions: 1},
		}},
	}
	if tx == nil {
		tx = noopTxProvider{}
	}
	fx.service = NewTAAssignmentService(fx.scholars, fx.assignments, fx.courses, tx, nil, nil)
	fx.service.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return fx
}

func TestTAAssignmentServiceGenerateMatchesAndStores(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTAFixture(t, tx)
	fx.scholars.items = []models.ResearchScholar{
		{ID: "RS1", FullName: "Lin", TACourseIDs: []string{"CS101", "MA201"}},
		{ID: "RS2", FullName: "Omar", TACourseIDs: []string{"CS101"}},
		{ID: "RS3", FullName: "Priya", TACourseIDs: []string{"CS101"}},
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := fx.service.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, resp.Assignments, 2)
	assert.Equal(t, models.TAAssignment{
		CourseID: "CS101", CourseName: "Intro to CS", ScholarID: "RS2", ScholarName: "Omar",
		AssignedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}, resp.Assignments[0])
	assert.Equal(t, "MA201", resp.Assignments[1].CourseID)
	assert.Equal(t, "RS1", resp.Assignments[1].ScholarID)
	assert.Equal(t, []dto.TAUnmatched{{ID: "RS3", Name: "Priya"}}, resp.UnmatchedScholars)
	assert.Equal(t, []dto.TAUnmatched{{ID: "PH110", Name: "Mechanics"}}, resp.UnmatchedCourses)
	assert.Equal(t, resp.Assignments, fx.assignments.stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTAAssignmentServiceGenerateWithoutScholars(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTAFixture(t, tx)

	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := fx.service.Generate(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, resp.Assignments)
	assert.Empty(t, resp.Assignments)
	assert.Empty(t, resp.UnmatchedScholars)
	assert.Len(t, resp.UnmatchedCourses, 3)
	assert.Equal(t, 1, fx.assignments.replaced)
}

func TestTAAssignmentServiceGenerateRollsBackOnStoreFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTAFixture(t, tx)
	fx.assignments.stored = []models.TAAssignment{{CourseID: "CS101", ScholarID: "RS9"}}
	fx.assignments.replaceErr = errors.New("db down")

	mock.ExpectBegin()
	mock.ExpectRollback()
	resp, err := fx.service.Generate(context.Background())

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []models.TAAssignment{{CourseID: "CS101", ScholarID: "RS9"}}, fx.assignments.stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTAAssignmentServiceCreateScholar(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTAFixture(t, tx)

	_, err := fx.service.CreateScholar(context.Background(), dto.CreateScholarRequest{ID: "RS1", FullName: "Lin", TACourseIDs: []string{"CS999"}})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Contains(t, err.Error(), "CS999")

	_, err = fx.service.CreateScholar(context.Background(), dto.CreateScholarRequest{ID: "RS1"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectCommit()
	scholar, err := fx.service.CreateScholar(context.Background(), dto.CreateScholarRequest{
		ID: " RS1 ", FullName: "Lin", TACourseIDs: []string{"CS101", "CS101", "MA201"},
	})
	require.NoError(t, err)
	assert.Equal(t, "RS1", scholar.ID)
	assert.Equal(t, []string{"CS101", "MA201"}, scholar.TACourseIDs)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = fx.service.CreateScholar(context.Background(), dto.CreateScholarRequest{ID: "RS1", FullName: "Lin again"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTAAssignmentServiceBulkCreateScholars(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newTAFixture(t, tx)
	fx.scholars.items = []models.ResearchScholar{{ID: "RS1", FullName: "Lin"}}

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := fx.service.BulkCreateScholars(context.Background(), dto.BulkScholarRequest{Scholars: []dto.CreateScholarRequest{
		{ID: "RS1", FullName: "Lin", TACourseIDs: []string{"CS101"}},
		{ID: "RS2"},
		{ID: "RS3", FullName: "Priya", TACourseIDs: []string{"CS999"}},
		{ID: "RS4", FullName: "Ken", TACourseIDs: []string{"PH110"}},
	}})
	require.NoError(t, err)

	require.Len(t, resp.Added, 1)
	assert.Equal(t, "RS4", resp.Added[0].ID)
	assert.Equal(t, []models.BulkFailure{
		{Index: 0, ID: "RS1", Reason: "research scholar RS1 already exists"},
		{Index: 1, ID: "RS2", Reason: "fullname failed required"},
		{Index: 2, ID: "RS3", Reason: "course CS999 does not exist"},
	}, resp.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = fx.service.BulkCreateScholars(context.Background(), dto.BulkScholarRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTAAssignmentServiceListsNeverReturnNil(t *testing.T) {
	fx := newTAFixture(t, nil)

	scholars, err := fx.service.ListScholars(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, scholars)

	items, err := fx.service.ListAssignments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
}
