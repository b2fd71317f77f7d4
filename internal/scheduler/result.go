package scheduler

import (
	"sort"
)

// Status summarises whether every session requirement was placed.
type Status string

const (
	StatusComplete            Status = "Complete"
	StatusPartialWithUnplaced Status = "PartialWithUnplaced"
)

// RejectReason names the hard constraint that excluded a candidate.
type RejectReason string

const (
	ReasonNoRoomCapacity     RejectReason = "NO_ROOM_CAPACITY"
	ReasonNoDistinctDay      RejectReason = "NO_DISTINCT_DAY"
	ReasonTeacherUnavailable RejectReason = "TEACHER_UNAVAILABLE"
	ReasonTeacherConflict    RejectReason = "TEACHER_CONFLICT"
	ReasonTeacherDailyLimit  RejectReason = "TEACHER_DAILY_LIMIT"
	ReasonRoomConflict       RejectReason = "ROOM_CONFLICT"
	ReasonStudentConflict    RejectReason = "STUDENT_CONFLICT"
)

// reasonPriority breaks ties when two reasons reject the same number of candidates.
var reasonPriority = []RejectReason{
	ReasonTeacherConflict,
	ReasonTeacherDailyLimit,
	ReasonTeacherUnavailable,
	ReasonRoomConflict,
	ReasonStudentConflict,
	ReasonNoDistinctDay,
	ReasonNoRoomCapacity,
}

// UnplacedSection is the admin-facing summary of a section missing sessions.
type UnplacedSection struct {
	SectionID           string `json:"sectionId"`
	CourseID            string `json:"courseId"`
	MissingSessionCount int    `json:"missingSessionCount"`
}

// UnplacedRequirement records why a single session could not be placed.
type UnplacedRequirement struct {
	SessionRequirement
	Reason     RejectReason         `json:"reason"`
	Rejections map[RejectReason]int `json:"rejections,omitempty"`
}

// Stats counts the work done by one run.
type Stats struct {
	Requirements int `json:"requirements"`
	Placed       int `json:"placed"`
	Seeded       int `json:"seeded"`
	Unplaced     int `json:"unplaced"`
}

// Result is the per-room schedule plus everything that could not be placed.
type Result struct {
	Status               Status                  `json:"status"`
	ByRoom               map[string][]Assignment `json:"byRoom"`
	Unplaced             []UnplacedSection       `json:"unplaced"`
	UnplacedRequirements []UnplacedRequirement   `json:"unplacedRequirements,omitempty"`
	Stats                Stats                   `json:"stats"`
}

// Assignments flattens ByRoom in room id order, keeping each room's day/time order.
func (r *Result) Assignments() []Assignment {
	if r == nil {
		return nil
	}
	roomIDs := make([]string, 0, len(r.ByRoom))
	for id := range r.ByRoom {
		roomIDs = append(roomIDs, id)
	}
	sort.Strings(roomIDs)
	var out []Assignment
	for _, id := range roomIDs {
		out = append(out, r.ByRoom[id]...)
	}
	return out
}

// MissingFor returns how many sessions of sectionID are unplaced.
func (r *Result) MissingFor(sectionID string) int {
	if r == nil {
		return 0
	}
	for _, item := range r.Unplaced {
		if item.SectionID == sectionID {
			return item.MissingSessionCount
		}
	}
	return 0
}

func buildResult(cat *catalog, committed []Assignment, unplaced []UnplacedRequirement, stats Stats) *Result {
	byRoom := make(map[string][]Assignment, len(cat.rooms))
	for _, room := range cat.rooms {
		byRoom[room.ID] = []Assignment{}
	}
	for _, a := range committed {
		byRoom[a.RoomID] = append(byRoom[a.RoomID], a)
	}
	for id := range byRoom {
		list := byRoom[id]
		sort.SliceStable(list, func(i, j int) bool {
			return cat.slotOrder[list[i].TimeslotID] < cat.slotOrder[list[j].TimeslotID]
		})
	}

	summaries := make([]UnplacedSection, 0)
	position := make(map[string]int)
	for _, item := range unplaced {
		idx, ok := position[item.SectionID]
		if !ok {
			idx = len(summaries)
			position[item.SectionID] = idx
			summaries = append(summaries, UnplacedSection{SectionID: item.SectionID, CourseID: item.CourseID})
		}
		summaries[idx].MissingSessionCount++
	}

	status := StatusComplete
	if len(unplaced) > 0 {
		status = StatusPartialWithUnplaced
	}
	stats.Unplaced = len(unplaced)
	return &Result{
		Status:               status,
		ByRoom:               byRoom,
		Unplaced:             summaries,
		UnplacedRequirements: unplaced,
		Stats:                stats,
	}
}

// Rebuild reconstructs a Result from persisted assignments and the unplaced
// requirements recorded when the run was generated. Stats.Placed and
// Stats.Seeded are taken from stats; Requirements and Unplaced are recomputed.
func Rebuild(in Input, assignments []Assignment, unplaced []UnplacedRequirement, stats Stats) *Result {
	cat := &catalog{slotOrder: make(map[string]int, len(in.Timeslots))}
	seen := make(map[string]bool, len(in.Rooms))
	for _, room := range in.Rooms {
		if !seen[room.ID] {
			seen[room.ID] = true
			cat.rooms = append(cat.rooms, room)
		}
	}
	slots := append([]Timeslot(nil), in.Timeslots...)
	sortTimeslots(slots)
	for i, slot := range slots {
		cat.slotOrder[slot.ID] = i
	}
	stats.Requirements = len(assignments) + len(unplaced)
	return buildResult(cat, assignments, unplaced, stats)
}
