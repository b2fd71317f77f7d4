package scheduler

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Engine produces timetables. It holds no state between calls, so one Engine can
// serve concurrent Generate calls.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine; a nil logger discards output.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

type requirementKey struct {
	section string
	index   int
}

// Generate places every session requirement it can and reports the rest.
//
// Placement is greedy: requirements are visited in priority order and each one takes the
// first feasible (room, timeslot) candidate. Committed sessions are never revisited, so a
// Result may be PartialWithUnplaced even when a full assignment exists.
func (e *Engine) Generate(ctx context.Context, in Input, opts Options) (*Result, error) {
	started := time.Now()
	opts = opts.withDefaults()

	cat, err := buildCatalog(in, opts)
	if err != nil {
		return nil, err
	}

	index := newConflictIndex(opts.MaxSessionsPerTeacherPerDay, !opts.IgnoreStudentConflicts)
	for _, teacher := range in.Teachers {
		for _, slotID := range teacher.UnavailableSlotIDs {
			index.block(teacher.ID, slotID)
		}
	}

	var (
		committed []Assignment
		satisfied = make(map[requirementKey]bool)
		stats     Stats
	)
	if opts.PreserveExisting {
		seeded, err := e.seed(cat, index, opts.Existing, satisfied)
		if err != nil {
			return nil, err
		}
		committed = append(committed, seeded...)
		stats.Seeded = len(seeded)
	}

	requirements := expandRequirements(cat, opts.TieBreak)
	stats.Requirements = len(requirements)
	days := scheduleDays(cat.slots)

	var unplaced []UnplacedRequirement
	for _, req := range requirements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if satisfied[requirementKey{section: req.SectionID, index: req.SessionIndex}] {
			continue
		}
		if assignment, ok := place(cat, index, req); ok {
			committed = append(committed, assignment)
			stats.Placed++
			continue
		}
		miss := diagnose(cat, index, req, days)
		e.logger.Debug("session unplaced",
			zap.String("section_id", req.SectionID),
			zap.String("course_id", req.CourseID),
			zap.Int("session_index", req.SessionIndex),
			zap.String("reason", string(miss.Reason)),
		)
		unplaced = append(unplaced, miss)
	}

	result := buildResult(cat, committed, unplaced, stats)
	e.logger.Info("timetable generated",
		zap.String("status", string(result.Status)),
		zap.Int("requirements", stats.Requirements),
		zap.Int("placed", stats.Placed),
		zap.Int("seeded", stats.Seeded),
		zap.Int("unplaced", len(unplaced)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// place walks rooms tightest-fit first and, inside each room, slots in day/time order.
func place(cat *catalog, index *conflictIndex, req SessionRequirement) (Assignment, bool) {
	for _, room := range cat.rooms {
		if room.Capacity < req.Enrollment {
			continue
		}
		for _, slot := range cat.slots {
			if !index.tryReserve(req, room, slot) {
				continue
			}
			return Assignment{
				SectionID:     req.SectionID,
				CourseID:      req.CourseID,
				TeacherID:     req.TeacherID,
				RoomID:        room.ID,
				TimeslotID:    slot.ID,
				SessionIndex:  req.SessionIndex,
				TotalSessions: req.TotalSessions,
			}, true
		}
	}
	return Assignment{}, false
}

func diagnose(cat *catalog, index *conflictIndex, req SessionRequirement, days []Weekday) UnplacedRequirement {
	rejections := make(map[RejectReason]int)
	fits := false
	for _, room := range cat.rooms {
		if room.Capacity < req.Enrollment {
			rejections[ReasonNoRoomCapacity] += len(cat.slots)
			continue
		}
		fits = true
		for _, slot := range cat.slots {
			if reason := index.explain(req, room, slot); reason != "" {
				rejections[reason]++
			}
		}
	}

	miss := UnplacedRequirement{SessionRequirement: req, Rejections: rejections}
	switch {
	case !fits:
		miss.Reason = ReasonNoRoomCapacity
	case index.daysUsed(req.SectionID, days) >= len(days):
		miss.Reason = ReasonNoDistinctDay
	default:
		best := 0
		for _, reason := range reasonPriority {
			if reason == ReasonNoDistinctDay || reason == ReasonNoRoomCapacity {
				continue
			}
			if rejections[reason] > best {
				best = rejections[reason]
				miss.Reason = reason
			}
		}
		if miss.Reason == "" {
			miss.Reason = ReasonNoDistinctDay
		}
	}
	return miss
}

func (e *Engine) seed(cat *catalog, index *conflictIndex, existing *Result, satisfied map[requirementKey]bool) ([]Assignment, error) {
	cfgErr := &ConfigurationError{}
	var seeded []Assignment
	for _, a := range existing.Assignments() {
		if _, ok := cat.roomByID[a.RoomID]; !ok {
			cfgErr.add("existing assignment for section %s references unknown room %s", a.SectionID, a.RoomID)
			continue
		}
		slot, ok := cat.slotByID[a.TimeslotID]
		if !ok || slot.IsBreak {
			cfgErr.add("existing assignment for section %s references unusable timeslot %s", a.SectionID, a.TimeslotID)
			continue
		}

		req := SessionRequirement{
			SectionID:     a.SectionID,
			CourseID:      a.CourseID,
			TeacherID:     a.TeacherID,
			SessionIndex:  a.SessionIndex,
			TotalSessions: a.TotalSessions,
		}
		if section, known := cat.sectionByID[a.SectionID]; known {
			course := cat.courseByID[section.CourseID]
			if section.CourseID != a.CourseID || section.TeacherID != a.TeacherID ||
				a.SessionIndex < 1 || a.SessionIndex > course.RequiredSessions {
				e.logger.Debug("dropping stale existing assignment",
					zap.String("section_id", a.SectionID),
					zap.Int("session_index", a.SessionIndex),
				)
				continue
			}
			key := requirementKey{section: a.SectionID, index: a.SessionIndex}
			if satisfied[key] {
				cfgErr.addSection(a.SectionID, "existing schedule places session %d of section %s twice", a.SessionIndex, a.SectionID)
				continue
			}
			req.TotalSessions = course.RequiredSessions
			req.StudentIDs = section.StudentIDs
			satisfied[key] = true
		}

		if reason := index.seed(req, a.RoomID, slot); reason != "" {
			cfgErr.add("existing assignment for section %s at %s in room %s is inconsistent (%s)", a.SectionID, a.TimeslotID, a.RoomID, reason)
			continue
		}
		a.TotalSessions = req.TotalSessions
		seeded = append(seeded, a)
	}
	if err := cfgErr.orNil(); err != nil {
		return nil, err
	}
	return seeded, nil
}

// expandRequirements derives one requirement per (section, session index) and orders them.
func expandRequirements(cat *catalog, tieBreak TieBreak) []SessionRequirement {
	var reqs []SessionRequirement
	for _, section := range cat.sections {
		course := cat.courseByID[section.CourseID]
		for i := 1; i <= course.RequiredSessions; i++ {
			reqs = append(reqs, SessionRequirement{
				SectionID:     section.ID,
				CourseID:      section.CourseID,
				TeacherID:     section.TeacherID,
				SessionIndex:  i,
				TotalSessions: course.RequiredSessions,
				Enrollment:    section.Enrollment(),
				StudentIDs:    section.StudentIDs,
			})
		}
	}
	if tieBreak == TieBreakFirstFit {
		return reqs
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		a, b := reqs[i], reqs[j]
		if a.Enrollment != b.Enrollment {
			return a.Enrollment > b.Enrollment
		}
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		if a.SessionIndex != b.SessionIndex {
			return a.SessionIndex < b.SessionIndex
		}
		return a.SectionID < b.SectionID
	})
	return reqs
}

func scheduleDays(slots []Timeslot) []Weekday {
	seen := make(map[Weekday]bool)
	var days []Weekday
	for _, slot := range slots {
		if !seen[slot.Day] {
			seen[slot.Day] = true
			days = append(days, slot.Day)
		}
	}
	return days
}
