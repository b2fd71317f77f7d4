package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TeacherRepository manages teachers with their qualifications and blocked slots.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns all teachers with their teachable courses and unavailable slots attached.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, full_name, email, active, created_at, updated_at FROM teachers ORDER BY id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}

	var courses []models.TeacherCourse
	if err := r.db.SelectContext(ctx, &courses, `SELECT teacher_id, course_id FROM teacher_courses ORDER BY teacher_id ASC, course_id ASC`); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	var blocked []models.TeacherUnavailableSlot
	if err := r.db.SelectContext(ctx, &blocked, `SELECT teacher_id, timeslot_id FROM teacher_unavailable_slots ORDER BY teacher_id ASC, timeslot_id ASC`); err != nil {
		return nil, fmt.Errorf("list teacher unavailable slots: %w", err)
	}

	position := make(map[string]int, len(teachers))
	for i := range teachers {
		teachers[i].TeachableCourseIDs = []string{}
		position[teachers[i].ID] = i
	}
	for _, link := range courses {
		if i, ok := position[link.TeacherID]; ok {
			teachers[i].TeachableCourseIDs = append(teachers[i].TeachableCourseIDs, link.CourseID)
		}
	}
	for _, link := range blocked {
		if i, ok := position[link.TeacherID]; ok {
			teachers[i].UnavailableSlotIDs = append(teachers[i].UnavailableSlotIDs, link.TimeslotID)
		}
	}
	return teachers, nil
}

// FindByID fetches a teacher and its links.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, full_name, email, active, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	teacher.TeachableCourseIDs = []string{}
	if err := r.db.SelectContext(ctx, &teacher.TeachableCourseIDs, `SELECT course_id FROM teacher_courses WHERE teacher_id = $1 ORDER BY course_id ASC`, id); err != nil {
		return nil, fmt.Errorf("load teacher courses: %w", err)
	}
	if err := r.db.SelectContext(ctx, &teacher.UnavailableSlotIDs, `SELECT timeslot_id FROM teacher_unavailable_slots WHERE teacher_id = $1 ORDER BY timeslot_id ASC`, id); err != nil {
		return nil, fmt.Errorf("load teacher unavailable slots: %w", err)
	}
	return &teacher, nil
}

// Create inserts a teacher together with its course and unavailability links.
// Pass a transaction as exec to make the inserts atomic.
func (r *TeacherRepository) Create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if teacher == nil {
		return fmt.Errorf("teacher payload is nil")
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	const insertTeacher = `INSERT INTO teachers (id, full_name, email, active, created_at, updated_at)
VALUES (:id, :full_name, :email, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertTeacher, teacher); err != nil {
		return fmt.Errorf("insert teacher: %w", err)
	}

	const insertCourse = `INSERT INTO teacher_courses (teacher_id, course_id) VALUES (:teacher_id, :course_id)`
	for _, courseID := range teacher.TeachableCourseIDs {
		link := models.TeacherCourse{TeacherID: teacher.ID, CourseID: courseID}
		if _, err := sqlx.NamedExecContext(ctx, target, insertCourse, link); err != nil {
			return fmt.Errorf("insert teacher course %s: %w", courseID, err)
		}
	}

	const insertBlocked = `INSERT INTO teacher_unavailable_slots (teacher_id, timeslot_id) VALUES (:teacher_id, :timeslot_id)`
	for _, slotID := range teacher.UnavailableSlotIDs {
		link := models.TeacherUnavailableSlot{TeacherID: teacher.ID, TimeslotID: slotID}
		if _, err := sqlx.NamedExecContext(ctx, target, insertBlocked, link); err != nil {
			return fmt.Errorf("insert teacher unavailable slot %s: %w", slotID, err)
		}
	}
	return nil
}
