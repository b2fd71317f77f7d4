package models

import "time"

// Room is a bookable teaching space.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Building  *string   `db:"building" json:"building,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Timeslot is a weekly recurring window shared by every room. Times are stored as HH:MM.
type Timeslot struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek int       `db:"day_of_week" json:"dayOfWeek"`
	StartTime string    `db:"start_time" json:"startTime"`
	EndTime   string    `db:"end_time" json:"endTime"`
	IsBreak   bool      `db:"is_break" json:"isBreak"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Course is identified by its course code.
type Course struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	RequiredSessions int       `db:"required_sessions" json:"requiredSessions"`
	Credits          int       `db:"credits" json:"credits"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// Section is one taught instance of a course. StudentIDs is loaded from section_students.
type Section struct {
	ID            string    `db:"id" json:"id"`
	CourseID      string    `db:"course_id" json:"courseId"`
	TeacherID     string    `db:"teacher_id" json:"teacherId"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolledCount"`
	StudentIDs    []string  `db:"-" json:"studentIds,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// SectionStudent links a student to a section roster.
type SectionStudent struct {
	SectionID string `db:"section_id"`
	StudentID string `db:"student_id"`
}

// BulkFailure describes one rejected row of a bulk import.
type BulkFailure struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}
