package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestCatalogServiceCreateRoomDefaultsName(t *testing.T) {
	fx := newCatalogFixture(t, nil)

	room, err := fx.service.CreateRoom(context.Background(), dto.CreateRoomRequest{ID: " R1 ", Capacity: 40})
	require.NoError(t, err)
	assert.Equal(t, "R1", room.ID)
	assert.Equal(t, "R1", room.Name)

	_, err = fx.service.CreateRoom(context.Background(), dto.CreateRoomRequest{ID: "R1", Capacity: 40})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = fx.service.CreateRoom(context.Background(), dto.CreateRoomRequest{ID: "R2"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceBulkCreateRoomsReportsFailures(t *testing.T) {
	fx := newCatalogFixture(t, nil)
	fx.rooms.items = []models.Room{{ID: "R1", Capacity: 10}}

	resp, err := fx.service.BulkCreateRooms(context.Background(), dto.BulkRoomRequest{Rooms: []dto.CreateRoomRequest{
		{ID: "R1", Capacity: 20},
		{ID: "R2", Capacity: 0},
		{ID: "R3", Capacity: 30},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Added, 1)
	assert.Equal(t, "R3", resp.Added[0].ID)
	require.Len(t, resp.Failed, 2)

	byIndex := map[int]models.BulkFailure{}
	for _, item := range resp.Failed {
		byIndex[item.Index] = item
	}
	assert.Equal(t, "room already exists", byIndex[0].Reason)
	assert.Equal(t, "capacity failed required", byIndex[1].Reason)

	_, err = fx.service.BulkCreateRooms(context.Background(), dto.BulkRoomRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateTimeslotNormalises(t *testing.T) {
	fx := newCatalogFixture(t, nil)

	slot, err := fx.service.CreateTimeslot(context.Background(), dto.CreateTimeslotRequest{
		ID: "mon-9", Day: "mon", StartTime: "9:00", EndTime: "10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, int(scheduler.Monday), slot.DayOfWeek)
	assert.Equal(t, "09:00", slot.StartTime)
	assert.Equal(t, "10:30", slot.EndTime)

	_, err = fx.service.CreateTimeslot(context.Background(), dto.CreateTimeslotRequest{
		ID: "bad", Day: "Monday", StartTime: "10:00", EndTime: "09:00",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = fx.service.CreateTimeslot(context.Background(), dto.CreateTimeslotRequest{
		ID: "sat", Day: "Saturday", StartTime: "09:00", EndTime: "10:00",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateTeacherRequiresKnownCourses(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newCatalogFixture(t, tx)
	fx.courses.items = []models.Course{{ID: "CS101", Name: "Intro", RequiredSessions: 2}}

	_, err := fx.service.CreateTeacher(context.Background(), dto.CreateTeacherRequest{
		ID: "T1", FullName: "Ada", TeachableCourseIDs: []string{"CS999"},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectCommit()
	teacher, err := fx.service.CreateTeacher(context.Background(), dto.CreateTeacherRequest{
		ID: "T1", FullName: "Ada", TeachableCourseIDs: []string{"CS101", "CS101"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101"}, teacher.TeachableCourseIDs)
	assert.True(t, teacher.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogServiceBulkCreateTeachersReportsFailures(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newCatalogFixture(t, tx)
	fx.courses.items = []models.Course{{ID: "CS101", RequiredSessions: 2}}
	fx.teachers.items = []models.Teacher{{ID: "T1", FullName: "Ada"}}
	fx.timeslots.items = []models.Timeslot{{ID: "mon-9", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}}

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()
	resp, err := fx.service.BulkCreateTeachers(context.Background(), dto.BulkTeacherRequest{Teachers: []dto.CreateTeacherRequest{
		{ID: "T1", FullName: "Ada", TeachableCourseIDs: []string{"CS101"}},
		{ID: "T2", FullName: "Grace"},
		{ID: "T3", FullName: "Alan", TeachableCourseIDs: []string{"CS999"}},
		{ID: "T4", FullName: "Barbara", TeachableCourseIDs: []string{"CS101"}, UnavailableSlotIDs: []string{"mon-9"}},
		{ID: "T5", FullName: "Edsger", TeachableCourseIDs: []string{"CS101"}, UnavailableSlotIDs: []string{"sun-9"}},
	}})
	require.NoError(t, err)
	require.Len(t, resp.Added, 1)
	assert.Equal(t, "T4", resp.Added[0].ID)
	assert.Equal(t, []string{"mon-9"}, resp.Added[0].UnavailableSlotIDs)
	assert.Equal(t, []models.BulkFailure{
		{Index: 0, ID: "T1", Reason: "teacher T1 already exists"},
		{Index: 1, ID: "T2", Reason: "teachablecourseids failed required"},
		{Index: 2, ID: "T3", Reason: "course CS999 does not exist"},
		{Index: 4, ID: "T5", Reason: "timeslot sun-9 does not exist"},
	}, resp.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = fx.service.BulkCreateTeachers(context.Background(), dto.BulkTeacherRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceBulkCreateTeachersAbortsOnInternalError(t *testing.T) {
	fx := newCatalogFixture(t, nil)
	fx.courses.items = []models.Course{{ID: "CS101", RequiredSessions: 2}}

	resp, err := fx.service.BulkCreateTeachers(context.Background(), dto.BulkTeacherRequest{Teachers: []dto.CreateTeacherRequest{
		{ID: "T1", FullName: "Ada", TeachableCourseIDs: []string{"CS101"}},
	}})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceCreateSectionChecksQualification(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	fx := newCatalogFixture(t, tx)
	fx.courses.items = []models.Course{{ID: "CS101", RequiredSessions: 2}, {ID: "MA201", RequiredSessions: 1}}
	fx.teachers.items = []models.Teacher{{ID: "T1", TeachableCourseIDs: []string{"CS101"}}}

	_, err := fx.service.CreateSection(context.Background(), dto.CreateSectionRequest{ID: "S1", CourseID: "MA201", TeacherID: "T1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not qualified")

	_, err = fx.service.CreateSection(context.Background(), dto.CreateSectionRequest{ID: "S1", CourseID: "CS101", TeacherID: "T9"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectCommit()
	section, err := fx.service.CreateSection(context.Background(), dto.CreateSectionRequest{
		ID: "S1", CourseID: "CS101", TeacherID: "T1", StudentIDs: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, section.StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogServiceSnapshotBuildsInput(t *testing.T) {
	fx := newCatalogFixture(t, nil)
	fx.rooms.items = []models.Room{{ID: "R1", Capacity: 30}}
	fx.timeslots.items = []models.Timeslot{{ID: "mon-9", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}}
	fx.courses.items = []models.Course{{ID: "CS101", Name: "Intro", RequiredSessions: 1}}
	fx.teachers.items = []models.Teacher{{ID: "T1", FullName: "Ada", TeachableCourseIDs: []string{"CS101"}}}
	fx.sections.items = []models.Section{{ID: "S1", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 12}}

	input, err := fx.service.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, input.Timeslots, 1)
	assert.Equal(t, scheduler.Monday, input.Timeslots[0].Day)
	assert.Equal(t, scheduler.MustClock("09:00"), input.Timeslots[0].Start)
	assert.Equal(t, "Ada", input.Teachers[0].Name)
	assert.Equal(t, 12, input.Sections[0].Enrollment())

	result, err := scheduler.NewEngine(nil).Generate(context.Background(), input, scheduler.Options{})
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusComplete, result.Status)
}

func TestBuildSchedulerInputRejectsBadClock(t *testing.T) {
	_, err := BuildSchedulerInput(nil, []models.Timeslot{{ID: "x", DayOfWeek: 1, StartTime: "25:00", EndTime: "26:00"}}, nil, nil, nil)
	assert.Error(t, err)
}

// --- Fixtures ---

type catalogFixture struct {
	service   *CatalogService
	rooms     *roomStoreStub
	timeslots *timeslotStoreStub
	courses   *courseStoreStub
	teachers  *teacherStoreStub
	sections  *sectionStoreStub
}

func newCatalogFixture(t *testing.T, tx txProvider) *catalogFixture {
	t.Helper()
	fx := &catalogFixture{
		rooms:     &roomStoreStub{},
		timeslots: &timeslotStoreStub{},
		courses:   &courseStoreStub{},
		teachers:  &teacherStoreStub{},
		sections:  &sectionStoreStub{},
	}
	if tx == nil {
		tx = noopTxProvider{}
	}
	fx.service = NewCatalogService(fx.rooms, fx.timeslots, fx.courses, fx.teachers, fx.sections, tx, nil, nil)
	return fx
}

var uniqueViolation = &pq.Error{Code: "23505"}

type roomStoreStub struct {
	items []models.Room
}

func (s *roomStoreStub) List(context.Context) ([]models.Room, error) {
	return s.items, nil
}

func (s *roomStoreStub) Create(_ context.Context, room *models.Room) error {
	for _, item := range s.items {
		if item.ID == room.ID {
			return uniqueViolation
		}
	}
	s.items = append(s.items, *room)
	return nil
}

func (s *roomStoreStub) BulkCreate(ctx context.Context, rooms []models.Room) ([]models.Room, []models.BulkFailure, error) {
	added := []models.Room{}
	failed := []models.BulkFailure{}
	for i := range rooms {
		if err := s.Create(ctx, &rooms[i]); err != nil {
			failed = append(failed, models.BulkFailure{Index: i, ID: rooms[i].ID, Reason: "room already exists"})
			continue
		}
		added = append(added, rooms[i])
	}
	return added, failed, nil
}

type timeslotStoreStub struct {
	items []models.Timeslot
}

func (s *timeslotStoreStub) List(context.Context) ([]models.Timeslot, error) {
	return s.items, nil
}

func (s *timeslotStoreStub) Create(_ context.Context, slot *models.Timeslot) error {
	s.items = append(s.items, *slot)
	return nil
}

type courseStoreStub struct {
	items []models.Course
}

func (s *courseStoreStub) List(context.Context) ([]models.Course, error) {
	return s.items, nil
}

func (s *courseStoreStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	for _, item := range s.items {
		if item.ID == id {
			course := item
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *courseStoreStub) Create(_ context.Context, course *models.Course) error {
	s.items = append(s.items, *course)
	return nil
}

type teacherStoreStub struct {
	items []models.Teacher
}

func (s *teacherStoreStub) List(context.Context) ([]models.Teacher, error) {
	return s.items, nil
}

func (s *teacherStoreStub) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	for _, item := range s.items {
		if item.ID == id {
			teacher := item
			return &teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherStoreStub) Create(_ context.Context, _ sqlx.ExtContext, teacher *models.Teacher) error {
	for _, item := range s.items {
		if item.ID == teacher.ID {
			return uniqueViolation
		}
	}
	s.items = append(s.items, *teacher)
	return nil
}

type sectionStoreStub struct {
	items []models.Section
}

func (s *sectionStoreStub) List(context.Context) ([]models.Section, error) {
	return s.items, nil
}

func (s *sectionStoreStub) Create(_ context.Context, _ sqlx.ExtContext, section *models.Section) error {
	s.items = append(s.items, *section)
	return nil
}
