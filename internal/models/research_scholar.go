package models

import "time"

// ResearchScholar is a graduate student who can act as teaching assistant for
// the courses in TACourseIDs.
type ResearchScholar struct {
	ID          string    `db:"id" json:"id"`
	FullName    string    `db:"full_name" json:"fullName"`
	TACourseIDs []string  `db:"-" json:"taCourseIds"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ScholarCourse is one row of the scholar eligibility map.
type ScholarCourse struct {
	ScholarID string `db:"scholar_id"`
	CourseID  string `db:"course_id"`
}

// TAAssignment records the scholar assisting a course. Names are filled by joins on read.
type TAAssignment struct {
	CourseID    string    `db:"course_id" json:"courseId"`
	CourseName  string    `db:"course_name" json:"courseName"`
	ScholarID   string    `db:"scholar_id" json:"scholarId"`
	ScholarName string    `db:"scholar_name" json:"scholarName"`
	AssignedAt  time.Time `db:"assigned_at" json:"assignedAt"`
}
