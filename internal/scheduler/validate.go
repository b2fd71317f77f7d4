package scheduler

import (
	"sort"
)

// catalog is the validated, indexed view of an Input.
type catalog struct {
	rooms       []Room
	roomByID    map[string]Room
	slots       []Timeslot
	slotByID    map[string]Timeslot
	slotOrder   map[string]int
	courseByID  map[string]Course
	teacherByID map[string]Teacher
	sections    []Section
	sectionByID map[string]Section
}

func buildCatalog(in Input, opts Options) (*catalog, error) {
	cfgErr := &ConfigurationError{}
	cat := &catalog{
		roomByID:    make(map[string]Room, len(in.Rooms)),
		slotByID:    make(map[string]Timeslot, len(in.Timeslots)),
		slotOrder:   make(map[string]int, len(in.Timeslots)),
		courseByID:  make(map[string]Course, len(in.Courses)),
		teacherByID: make(map[string]Teacher, len(in.Teachers)),
		sectionByID: make(map[string]Section, len(in.Sections)),
	}

	if opts.MaxSessionsPerTeacherPerDay < 0 {
		cfgErr.add("maxSessionsPerTeacherPerDay must not be negative (got %d)", opts.MaxSessionsPerTeacherPerDay)
	}
	switch opts.TieBreak {
	case TieBreakLargestSectionFirst, TieBreakFirstFit:
	default:
		cfgErr.add("unknown tie-break %q", opts.TieBreak)
	}
	if opts.PreserveExisting && opts.Existing == nil {
		cfgErr.add("preserveExisting requires a previous schedule result")
	}

	if len(in.Rooms) == 0 {
		cfgErr.add("at least one room is required")
	}
	for _, room := range in.Rooms {
		if room.ID == "" {
			cfgErr.add("room id is required")
			continue
		}
		if _, dup := cat.roomByID[room.ID]; dup {
			cfgErr.add("duplicate room id %s", room.ID)
			continue
		}
		if room.Capacity <= 0 {
			cfgErr.add("room %s capacity must be positive (got %d)", room.ID, room.Capacity)
		}
		cat.roomByID[room.ID] = room
		cat.rooms = append(cat.rooms, room)
	}
	// Tightest fit first: for a fixed enrollment, ascending capacity is ascending surplus.
	sort.SliceStable(cat.rooms, func(i, j int) bool {
		if cat.rooms[i].Capacity == cat.rooms[j].Capacity {
			return cat.rooms[i].ID < cat.rooms[j].ID
		}
		return cat.rooms[i].Capacity < cat.rooms[j].Capacity
	})

	all := make([]Timeslot, 0, len(in.Timeslots))
	for _, slot := range in.Timeslots {
		if slot.ID == "" {
			cfgErr.add("timeslot id is required")
			continue
		}
		if _, dup := cat.slotByID[slot.ID]; dup {
			cfgErr.add("duplicate timeslot id %s", slot.ID)
			continue
		}
		if !slot.Day.Valid() {
			cfgErr.add("timeslot %s has invalid day %d", slot.ID, int(slot.Day))
		}
		if slot.End <= slot.Start {
			cfgErr.add("timeslot %s must end after it starts (%s-%s)", slot.ID, slot.Start, slot.End)
		}
		cat.slotByID[slot.ID] = slot
		all = append(all, slot)
	}
	sortTimeslots(all)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Day == cur.Day && cur.Start < prev.End {
			cfgErr.add("timeslots %s and %s overlap on %s", prev.ID, cur.ID, cur.Day)
		}
	}
	for i, slot := range all {
		cat.slotOrder[slot.ID] = i
		if !slot.IsBreak {
			cat.slots = append(cat.slots, slot)
		}
	}
	if len(cat.slots) == 0 {
		cfgErr.add("at least one non-break timeslot is required")
	}

	for _, course := range in.Courses {
		if course.ID == "" {
			cfgErr.add("course id is required")
			continue
		}
		if _, dup := cat.courseByID[course.ID]; dup {
			cfgErr.add("duplicate course id %s", course.ID)
			continue
		}
		if course.RequiredSessions <= 0 {
			cfgErr.add("course %s requiredSessions must be positive (got %d)", course.ID, course.RequiredSessions)
		}
		cat.courseByID[course.ID] = course
	}

	for _, teacher := range in.Teachers {
		if teacher.ID == "" {
			cfgErr.add("teacher id is required")
			continue
		}
		if _, dup := cat.teacherByID[teacher.ID]; dup {
			cfgErr.add("duplicate teacher id %s", teacher.ID)
			continue
		}
		for _, slotID := range teacher.UnavailableSlotIDs {
			if _, ok := cat.slotByID[slotID]; !ok {
				cfgErr.add("teacher %s marks unknown timeslot %s unavailable", teacher.ID, slotID)
			}
		}
		cat.teacherByID[teacher.ID] = teacher
	}

	for _, section := range in.Sections {
		if section.ID == "" {
			cfgErr.add("section id is required")
			continue
		}
		if _, dup := cat.sectionByID[section.ID]; dup {
			cfgErr.addSection(section.ID, "duplicate section id %s", section.ID)
			continue
		}
		cat.sectionByID[section.ID] = section
		cat.sections = append(cat.sections, section)

		if section.EnrolledCount < 0 {
			cfgErr.addSection(section.ID, "section %s enrolledCount must not be negative", section.ID)
		}
		if _, ok := cat.courseByID[section.CourseID]; !ok {
			cfgErr.addSection(section.ID, "section %s references unknown course %s", section.ID, section.CourseID)
		}
		teacher, ok := cat.teacherByID[section.TeacherID]
		if !ok {
			cfgErr.addSection(section.ID, "section %s references unknown teacher %s", section.ID, section.TeacherID)
			continue
		}
		if !teacher.CanTeach(section.CourseID) {
			cfgErr.addSection(section.ID, "teacher %s is not qualified to teach course %s (section %s)", teacher.ID, section.CourseID, section.ID)
		}
	}

	if err := cfgErr.orNil(); err != nil {
		return nil, err
	}
	return cat, nil
}

func sortTimeslots(slots []Timeslot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Day != slots[j].Day {
			return slots[i].Day < slots[j].Day
		}
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].ID < slots[j].ID
	})
}
