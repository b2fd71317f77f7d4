package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "building", "created_at", "updated_at"}).
		AddRow("R101", "Lecture Hall", 120, "North", now, now).
		AddRow("R202", "Lab", 30, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, building, created_at, updated_at FROM rooms ORDER BY id ASC")).
		WillReturnRows(rows)

	rooms, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.NotNil(t, rooms[0].Building)
	assert.Equal(t, "North", *rooms[0].Building)
	assert.Nil(t, rooms[1].Building)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WithArgs("R1", "One", 40, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WithArgs("R1", "Duplicate", 10, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).
		WithArgs("R2", "Two", 25, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	added, failed, err := repo.BulkCreate(context.Background(), []models.Room{
		{ID: "R1", Name: "One", Capacity: 40},
		{ID: "R1", Name: "Duplicate", Capacity: 10},
		{ID: "R2", Name: "Two", Capacity: 25},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.False(t, added[0].CreatedAt.IsZero())
	assert.Equal(t, []models.BulkFailure{{Index: 1, ID: "R1", Reason: "room already exists"}}, failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryBulkCreateStopsOnDatabaseError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rooms")).WillReturnError(errors.New("connection reset"))

	added, _, err := repo.BulkCreate(context.Background(), []models.Room{{ID: "R1", Capacity: 10}, {ID: "R2", Capacity: 10}})
	require.Error(t, err)
	assert.Empty(t, added)
	assert.False(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeslotRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeslotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time", "is_break", "created_at"}).
		AddRow("mon-9", 1, "09:00", "10:00", false, time.Now()).
		AddRow("mon-12", 1, "12:00", "13:00", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timeslots ORDER BY day_of_week ASC, start_time ASC, id ASC")).
		WillReturnRows(rows)

	slots, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].StartTime)
	assert.True(t, slots[1].IsBreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WithArgs("CS101", "Intro to CS", 3, 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{ID: "CS101", Name: "Intro to CS", RequiredSessions: 3, Credits: 4}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.False(t, course.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListAttachesLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, active, created_at, updated_at FROM teachers ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "active", "created_at", "updated_at"}).
			AddRow("T1", "Ada", "ada@campus.edu", true, now, now).
			AddRow("T2", "Grace", nil, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id, course_id FROM teacher_courses")).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "course_id"}).
			AddRow("T1", "CS101").
			AddRow("T1", "CS102").
			AddRow("T9", "MA101"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT teacher_id, timeslot_id FROM teacher_unavailable_slots")).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "timeslot_id"}).AddRow("T2", "mon-9"))

	teachers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, []string{"CS101", "CS102"}, teachers[0].TeachableCourseIDs)
	assert.Empty(t, teachers[0].UnavailableSlotIDs)
	assert.Equal(t, []string{}, teachers[1].TeachableCourseIDs)
	assert.Equal(t, []string{"mon-9"}, teachers[1].UnavailableSlotIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers")).
		WithArgs("T1", "Ada", nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_courses")).
		WithArgs("T1", "CS101").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_unavailable_slots")).
		WithArgs("T1", "fri-9").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	teacher := &models.Teacher{ID: "T1", FullName: "Ada", Active: true, TeachableCourseIDs: []string{"CS101"}, UnavailableSlotIDs: []string{"fri-9"}}
	require.NoError(t, repo.Create(context.Background(), tx, teacher))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListAndCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, teacher_id, enrolled_count, created_at, updated_at FROM sections ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "teacher_id", "enrolled_count", "created_at", "updated_at"}).
			AddRow("S1", "CS101", "T1", 2, now, now).
			AddRow("S2", "MA101", "T2", 40, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT section_id, student_id FROM section_students")).
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "student_id"}).
			AddRow("S1", "alice").
			AddRow("S1", "bob"))

	sections, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, []string{"alice", "bob"}, sections[0].StudentIDs)
	assert.Nil(t, sections[1].StudentIDs)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WithArgs("S3", "CS101", "T1", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO section_students")).
		WithArgs("S3", "carol").
		WillReturnResult(sqlmock.NewResult(1, 1))

	section := &models.Section{ID: "S3", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 99, StudentIDs: []string{"carol"}}
	require.NoError(t, repo.Create(context.Background(), nil, section))
	assert.Equal(t, 1, section.EnrolledCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
