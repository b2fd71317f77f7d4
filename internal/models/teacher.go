package models

import "time"

// Teacher is an instructor together with the courses they may teach and the
// timeslots they cannot take.
type Teacher struct {
	ID                 string    `db:"id" json:"id"`
	FullName           string    `db:"full_name" json:"fullName"`
	Email              *string   `db:"email" json:"email,omitempty"`
	Active             bool      `db:"active" json:"active"`
	TeachableCourseIDs []string  `db:"-" json:"teachableCourseIds"`
	UnavailableSlotIDs []string  `db:"-" json:"unavailableSlotIds,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// TeacherCourse is one row of the qualification map.
type TeacherCourse struct {
	TeacherID string `db:"teacher_id"`
	CourseID  string `db:"course_id"`
}

// TeacherUnavailableSlot blocks a timeslot for a teacher.
type TeacherUnavailableSlot struct {
	TeacherID  string `db:"teacher_id"`
	TimeslotID string `db:"timeslot_id"`
}
