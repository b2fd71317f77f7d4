package dto

import "github.com/noah-isme/timetable-api/internal/models"

// CreateScholarRequest registers a research scholar and the courses they can assist.
type CreateScholarRequest struct {
	ID          string   `json:"id" validate:"required,max=64"`
	FullName    string   `json:"fullName" validate:"required,max=255"`
	TACourseIDs []string `json:"taCourseIds" validate:"omitempty,dive,required"`
}

// BulkScholarRequest imports several scholars at once.
type BulkScholarRequest struct {
	Scholars []CreateScholarRequest `json:"scholars" validate:"required,min=1,max=500"`
}

// BulkScholarResponse reports per-row outcomes of a scholar import.
type BulkScholarResponse struct {
	Added  []models.ResearchScholar `json:"added"`
	Failed []models.BulkFailure     `json:"failed"`
}

// TAUnmatched names a scholar or course left without a partner.
type TAUnmatched struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TAAssignmentResponse is the outcome of one TA matching run.
type TAAssignmentResponse struct {
	Assignments       []models.TAAssignment `json:"assignments"`
	UnmatchedScholars []TAUnmatched         `json:"unmatchedScholars"`
	UnmatchedCourses  []TAUnmatched         `json:"unmatchedCourses"`
}
