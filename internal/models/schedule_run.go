package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleRunStatus represents lifecycle phases of a stored timetable.
type ScheduleRunStatus string

const (
	ScheduleRunStatusDraft     ScheduleRunStatus = "DRAFT"
	ScheduleRunStatusPublished ScheduleRunStatus = "PUBLISHED"
	ScheduleRunStatusArchived  ScheduleRunStatus = "ARCHIVED"
)

// ScheduleRun is a versioned, persisted scheduler result. Meta holds the engine
// options, stats, unplaced report and the catalog snapshot the run was generated from.
type ScheduleRun struct {
	ID          string            `db:"id" json:"id"`
	Version     int               `db:"version" json:"version"`
	Status      ScheduleRunStatus `db:"status" json:"status"`
	Outcome     string            `db:"outcome" json:"outcome"`
	Meta        types.JSONText    `db:"meta" json:"-"`
	CreatedBy   *string           `db:"created_by" json:"createdBy,omitempty"`
	PublishedAt *time.Time        `db:"published_at" json:"publishedAt,omitempty"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

// ScheduleAssignment is a single placed session inside a run.
type ScheduleAssignment struct {
	ID            string    `db:"id" json:"id"`
	RunID         string    `db:"run_id" json:"runId"`
	SectionID     string    `db:"section_id" json:"sectionId"`
	CourseID      string    `db:"course_id" json:"courseId"`
	TeacherID     string    `db:"teacher_id" json:"teacherId"`
	RoomID        string    `db:"room_id" json:"roomId"`
	TimeslotID    string    `db:"timeslot_id" json:"timeslotId"`
	SessionIndex  int       `db:"session_index" json:"sessionIndex"`
	TotalSessions int       `db:"total_sessions" json:"totalSessions"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// ScheduleRunFilter narrows run listings.
type ScheduleRunFilter struct {
	Status *ScheduleRunStatus
	Limit  int
}
