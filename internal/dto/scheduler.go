package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerateOptions tunes one generator run.
type GenerateOptions struct {
	MaxSessionsPerTeacherPerDay int    `json:"maxSessionsPerTeacherPerDay" validate:"omitempty,min=1,max=24"`
	PreserveExisting            bool   `json:"preserveExisting"`
	BaseRunID                   string `json:"baseRunId" validate:"omitempty,uuid"`
	TieBreak                    string `json:"tieBreak" validate:"omitempty,oneof=LARGEST_SECTION_FIRST FIRST_FIT"`
	IgnoreStudentConflicts      *bool  `json:"ignoreStudentConflicts"`
}

// AppliedOptions are the options a run was generated with after defaults.
type AppliedOptions struct {
	MaxSessionsPerTeacherPerDay int                `json:"maxSessionsPerTeacherPerDay"`
	PreserveExisting            bool               `json:"preserveExisting"`
	BaseRunID                   string             `json:"baseRunId,omitempty"`
	TieBreak                    scheduler.TieBreak `json:"tieBreak"`
	IgnoreStudentConflicts      bool               `json:"ignoreStudentConflicts"`
}

// GenerateScheduleRequest asks the generator for a proposal. When Catalog is nil
// the stored rooms, timeslots, courses, teachers and sections are used.
type GenerateScheduleRequest struct {
	Catalog *scheduler.Input `json:"catalog,omitempty"`
	Options GenerateOptions  `json:"options"`
}

// GenerateScheduleResponse returns the built timetable proposal.
type GenerateScheduleResponse struct {
	ProposalID           string                            `json:"proposalId"`
	Status               scheduler.Status                  `json:"status"`
	ByRoom               map[string][]scheduler.Assignment `json:"byRoom"`
	Unplaced             []scheduler.UnplacedSection       `json:"unplaced"`
	UnplacedRequirements []scheduler.UnplacedRequirement   `json:"unplacedRequirements,omitempty"`
	Stats                scheduler.Stats                   `json:"stats"`
	Options              AppliedOptions                    `json:"options"`
	ExpiresAt            time.Time                         `json:"expiresAt"`
}

// SaveScheduleRequest persists a proposal as a new schedule run.
type SaveScheduleRequest struct {
	ProposalID   string `json:"proposalId" validate:"required"`
	Publish      bool   `json:"publish"`
	AllowPartial bool   `json:"allowPartial"`
}

// SaveScheduleResponse identifies the stored run.
type SaveScheduleResponse struct {
	RunID   string                   `json:"runId"`
	Version int                      `json:"version"`
	Status  models.ScheduleRunStatus `json:"status"`
}

// ScheduleRunQuery filters run listings.
type ScheduleRunQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// ScheduleRunDetail is a stored run with its reconstructed result.
type ScheduleRunDetail struct {
	Run     models.ScheduleRun       `json:"run"`
	Options AppliedOptions           `json:"options"`
	Result  *scheduler.Result        `json:"result"`
	Rooms   []scheduler.RoomSchedule `json:"rooms"`
}

// UnplacedView lists what a run failed to place.
type UnplacedView struct {
	Sections     []scheduler.UnplacedSection     `json:"sections"`
	Requirements []scheduler.UnplacedRequirement `json:"requirements"`
}

// VerificationView reports hard-constraint violations found in a stored run.
type VerificationView struct {
	Valid      bool                  `json:"valid"`
	Violations []scheduler.Violation `json:"violations"`
}
