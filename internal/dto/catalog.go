package dto

import "github.com/noah-isme/timetable-api/internal/models"

// CreateRoomRequest registers a room.
type CreateRoomRequest struct {
	ID       string  `json:"id" validate:"required,max=64"`
	Name     string  `json:"name" validate:"max=128"`
	Capacity int     `json:"capacity" validate:"required,min=1,max=10000"`
	Building *string `json:"building" validate:"omitempty,max=128"`
}

// BulkRoomRequest imports several rooms at once.
type BulkRoomRequest struct {
	Rooms []CreateRoomRequest `json:"rooms" validate:"required,min=1,max=500,dive"`
}

// BulkRoomResponse reports per-row outcomes of a bulk import.
type BulkRoomResponse struct {
	Added  []models.Room            `json:"added"`
	Failed []models.BulkFailure `json:"failed"`
}

// CreateTimeslotRequest registers a weekly slot. Day accepts Monday..Friday, Mon..Fri or 1..5.
type CreateTimeslotRequest struct {
	ID        string `json:"id" validate:"required,max=64"`
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	IsBreak   bool   `json:"isBreak"`
}

// CreateCourseRequest registers a course.
type CreateCourseRequest struct {
	ID               string `json:"id" validate:"required,max=64"`
	Name             string `json:"name" validate:"required,max=255"`
	RequiredSessions int    `json:"requiredSessions" validate:"required,min=1,max=20"`
	Credits          int    `json:"credits" validate:"omitempty,min=0,max=30"`
}

// CreateTeacherRequest registers a teacher with qualifications.
type CreateTeacherRequest struct {
	ID                 string   `json:"id" validate:"required,max=64"`
	FullName           string   `json:"fullName" validate:"required,max=255"`
	Email              *string  `json:"email" validate:"omitempty,email"`
	TeachableCourseIDs []string `json:"teachableCourseIds" validate:"required,min=1,dive,required"`
	UnavailableSlotIDs []string `json:"unavailableSlotIds" validate:"omitempty,dive,required"`
}

// BulkTeacherRequest imports several teachers at once.
type BulkTeacherRequest struct {
	Teachers []CreateTeacherRequest `json:"teachers" validate:"required,min=1,max=500"`
}

// BulkTeacherResponse reports per-row outcomes of a teacher import.
type BulkTeacherResponse struct {
	Added  []models.Teacher     `json:"added"`
	Failed []models.BulkFailure `json:"failed"`
}

// CreateSectionRequest registers a section of a course.
type CreateSectionRequest struct {
	ID            string   `json:"id" validate:"required,max=64"`
	CourseID      string   `json:"courseId" validate:"required"`
	TeacherID     string   `json:"teacherId" validate:"required"`
	EnrolledCount int      `json:"enrolledCount" validate:"min=0,max=10000"`
	StudentIDs    []string `json:"studentIds" validate:"omitempty,unique,dive,required"`
}
