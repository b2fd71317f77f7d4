package scheduler

type roomSlot struct {
	room string
	slot string
}

type teacherSlot struct {
	teacher string
	slot    string
}

type studentSlot struct {
	student string
	slot    string
}

type sectionDay struct {
	section string
	day     Weekday
}

type teacherDay struct {
	teacher string
	day     Weekday
}

// conflictIndex answers every hard-constraint membership test in O(1) for one run.
// It is not safe for concurrent use; each Generate call builds its own.
type conflictIndex struct {
	maxPerDay     int
	checkStudents bool

	rooms       map[roomSlot]string
	teachers    map[teacherSlot]string
	students    map[studentSlot]string
	sectionDays map[sectionDay]struct{}
	teacherLoad map[teacherDay]int
	blocked     map[teacherSlot]struct{}
}

func newConflictIndex(maxPerDay int, checkStudents bool) *conflictIndex {
	return &conflictIndex{
		maxPerDay:     maxPerDay,
		checkStudents: checkStudents,
		rooms:         make(map[roomSlot]string),
		teachers:      make(map[teacherSlot]string),
		students:      make(map[studentSlot]string),
		sectionDays:   make(map[sectionDay]struct{}),
		teacherLoad:   make(map[teacherDay]int),
		blocked:       make(map[teacherSlot]struct{}),
	}
}

// block marks a slot the teacher cannot teach in.
func (x *conflictIndex) block(teacherID, slotID string) {
	x.blocked[teacherSlot{teacher: teacherID, slot: slotID}] = struct{}{}
}

// explain returns the first constraint that rules the candidate out, or "" when it is feasible.
func (x *conflictIndex) explain(req SessionRequirement, room Room, slot Timeslot) RejectReason {
	if room.Capacity < req.Enrollment {
		return ReasonNoRoomCapacity
	}
	if _, used := x.sectionDays[sectionDay{section: req.SectionID, day: slot.Day}]; used {
		return ReasonNoDistinctDay
	}
	ts := teacherSlot{teacher: req.TeacherID, slot: slot.ID}
	if _, blocked := x.blocked[ts]; blocked {
		return ReasonTeacherUnavailable
	}
	if _, taken := x.teachers[ts]; taken {
		return ReasonTeacherConflict
	}
	if x.teacherLoad[teacherDay{teacher: req.TeacherID, day: slot.Day}] >= x.maxPerDay {
		return ReasonTeacherDailyLimit
	}
	if _, taken := x.rooms[roomSlot{room: room.ID, slot: slot.ID}]; taken {
		return ReasonRoomConflict
	}
	if x.checkStudents {
		for _, student := range req.StudentIDs {
			if holder, taken := x.students[studentSlot{student: student, slot: slot.ID}]; taken && holder != req.SectionID {
				return ReasonStudentConflict
			}
		}
	}
	return ""
}

// tryReserve checks every constraint and records the reservation only if all pass.
func (x *conflictIndex) tryReserve(req SessionRequirement, room Room, slot Timeslot) bool {
	if x.explain(req, room, slot) != "" {
		return false
	}
	x.record(req, room.ID, slot)
	return true
}

// seed records a previously committed assignment. Only double bookings are rejected;
// capacity and daily load are trusted from the run that produced it.
func (x *conflictIndex) seed(req SessionRequirement, roomID string, slot Timeslot) RejectReason {
	if _, taken := x.rooms[roomSlot{room: roomID, slot: slot.ID}]; taken {
		return ReasonRoomConflict
	}
	if _, taken := x.teachers[teacherSlot{teacher: req.TeacherID, slot: slot.ID}]; taken {
		return ReasonTeacherConflict
	}
	if _, used := x.sectionDays[sectionDay{section: req.SectionID, day: slot.Day}]; used {
		return ReasonNoDistinctDay
	}
	x.record(req, roomID, slot)
	return ""
}

func (x *conflictIndex) record(req SessionRequirement, roomID string, slot Timeslot) {
	x.rooms[roomSlot{room: roomID, slot: slot.ID}] = req.SectionID
	x.teachers[teacherSlot{teacher: req.TeacherID, slot: slot.ID}] = req.SectionID
	x.sectionDays[sectionDay{section: req.SectionID, day: slot.Day}] = struct{}{}
	x.teacherLoad[teacherDay{teacher: req.TeacherID, day: slot.Day}]++
	for _, student := range req.StudentIDs {
		x.students[studentSlot{student: student, slot: slot.ID}] = req.SectionID
	}
}

// daysUsed counts the distinct days a section already occupies.
func (x *conflictIndex) daysUsed(sectionID string, days []Weekday) int {
	n := 0
	for _, day := range days {
		if _, used := x.sectionDays[sectionDay{section: sectionID, day: day}]; used {
			n++
		}
	}
	return n
}
