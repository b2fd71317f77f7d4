package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ScheduleAssignmentRepository stores the placed sessions of a run.
type ScheduleAssignmentRepository struct {
	db *sqlx.DB
}

// NewScheduleAssignmentRepository builds repository.
func NewScheduleAssignmentRepository(db *sqlx.DB) *ScheduleAssignmentRepository {
	return &ScheduleAssignmentRepository{db: db}
}

func (r *ScheduleAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes assignments for a run. The (run_id, room_id, timeslot_id)
// unique index rejects a double-booked room.
func (r *ScheduleAssignmentRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.ScheduleAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO schedule_assignments (id, run_id, section_id, course_id, teacher_id, room_id, timeslot_id, session_index, total_sessions, created_at)
VALUES (:id, :run_id, :section_id, :course_id, :teacher_id, :room_id, :timeslot_id, :session_index, :total_sessions, :created_at)`

	for i := range assignments {
		item := &assignments[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, item); err != nil {
			return fmt.Errorf("insert schedule assignment: %w", err)
		}
	}
	return nil
}

// ListByRun returns assignments of a run ordered by room, slot.
func (r *ScheduleAssignmentRepository) ListByRun(ctx context.Context, runID string) ([]models.ScheduleAssignment, error) {
	const query = `SELECT id, run_id, section_id, course_id, teacher_id, room_id, timeslot_id, session_index, total_sessions, created_at
FROM schedule_assignments WHERE run_id = $1 ORDER BY room_id ASC, timeslot_id ASC`
	var assignments []models.ScheduleAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, runID); err != nil {
		return nil, fmt.Errorf("list schedule assignments: %w", err)
	}
	return assignments, nil
}
