package scheduler

import (
	"fmt"
	"math"
	"sort"
)

// Session is one assignment enriched with the display data the timetable views need.
type Session struct {
	RoomID        string  `json:"roomId"`
	TimeslotID    string  `json:"timeslotId"`
	Day           Weekday `json:"day"`
	Start         Clock   `json:"start"`
	End           Clock   `json:"end"`
	CourseID      string  `json:"courseId"`
	CourseName    string  `json:"courseName,omitempty"`
	SectionID     string  `json:"sectionId"`
	TeacherID     string  `json:"teacherId"`
	TeacherName   string  `json:"teacherName,omitempty"`
	SessionIndex  int     `json:"sessionIndex"`
	TotalSessions int     `json:"totalSessions"`
	Enrolled      int     `json:"enrolled"`
}

// RoomSchedule is the per-room nested timetable.
type RoomSchedule struct {
	RoomID   string    `json:"roomId"`
	Capacity int       `json:"capacity"`
	Sessions []Session `json:"sessions"`
}

// RoomUtilization summarises how much of a room's teachable week is booked.
type RoomUtilization struct {
	RoomID         string  `json:"roomId"`
	Capacity       int     `json:"capacity"`
	SessionCount   int     `json:"sessionCount"`
	AvailableSlots int     `json:"availableSlots"`
	Percent        float64 `json:"utilizationPercent"`
}

// Violation is one hard-constraint breach found by Verify.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Verification rule names.
const (
	RuleRoomDoubleBooked    = "ROOM_DOUBLE_BOOKED"
	RuleTeacherDoubleBooked = "TEACHER_DOUBLE_BOOKED"
	RuleStudentDoubleBooked = "STUDENT_DOUBLE_BOOKED"
	RuleDistinctDay         = "DISTINCT_DAY"
	RuleCapacity            = "CAPACITY"
	RuleTeacherDailyLimit   = "TEACHER_DAILY_LIMIT"
	RuleConservation        = "CONSERVATION"
	RuleUnknownReference    = "UNKNOWN_REFERENCE"
)

// Lookup resolves the ids inside a Result back to catalog entities.
type Lookup struct {
	rooms    map[string]Room
	slots    map[string]Timeslot
	courses  map[string]Course
	teachers map[string]Teacher
	sections map[string]Section
	roomIDs  []string
}

// NewLookup indexes an Input for the report projections.
func NewLookup(in Input) *Lookup {
	l := &Lookup{
		rooms:    make(map[string]Room, len(in.Rooms)),
		slots:    make(map[string]Timeslot, len(in.Timeslots)),
		courses:  make(map[string]Course, len(in.Courses)),
		teachers: make(map[string]Teacher, len(in.Teachers)),
		sections: make(map[string]Section, len(in.Sections)),
	}
	for _, r := range in.Rooms {
		if _, ok := l.rooms[r.ID]; !ok {
			l.roomIDs = append(l.roomIDs, r.ID)
		}
		l.rooms[r.ID] = r
	}
	sort.Strings(l.roomIDs)
	for _, s := range in.Timeslots {
		l.slots[s.ID] = s
	}
	for _, c := range in.Courses {
		l.courses[c.ID] = c
	}
	for _, t := range in.Teachers {
		l.teachers[t.ID] = t
	}
	for _, s := range in.Sections {
		l.sections[s.ID] = s
	}
	return l
}

// HasTeacher reports whether id is a known teacher.
func (l *Lookup) HasTeacher(id string) bool {
	_, ok := l.teachers[id]
	return ok
}

// HasSection reports whether id is a known section.
func (l *Lookup) HasSection(id string) bool {
	_, ok := l.sections[id]
	return ok
}

// HasRoom reports whether id is a known room.
func (l *Lookup) HasRoom(id string) bool {
	_, ok := l.rooms[id]
	return ok
}

func (l *Lookup) session(a Assignment) Session {
	slot := l.slots[a.TimeslotID]
	section := l.sections[a.SectionID]
	return Session{
		RoomID:        a.RoomID,
		TimeslotID:    a.TimeslotID,
		Day:           slot.Day,
		Start:         slot.Start,
		End:           slot.End,
		CourseID:      a.CourseID,
		CourseName:    l.courses[a.CourseID].Name,
		SectionID:     a.SectionID,
		TeacherID:     a.TeacherID,
		TeacherName:   l.teachers[a.TeacherID].Name,
		SessionIndex:  a.SessionIndex,
		TotalSessions: a.TotalSessions,
		Enrolled:      section.Enrollment(),
	}
}

func (l *Lookup) sessions(result *Result, keep func(Assignment) bool) []Session {
	out := make([]Session, 0)
	for _, a := range result.Assignments() {
		if keep(a) {
			out = append(out, l.session(a))
		}
	}
	sortSessions(out)
	return out
}

func sortSessions(list []Session) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.RoomID != b.RoomID {
			return a.RoomID < b.RoomID
		}
		return a.TimeslotID < b.TimeslotID
	})
}

// RoomTimetable projects a result into one schedule per room ordered by room id. Rooms
// present in the catalog but unused in the result are listed with no sessions.
func (l *Lookup) RoomTimetable(result *Result) []RoomSchedule {
	ids := append([]string(nil), l.roomIDs...)
	if result != nil {
		for id := range result.ByRoom {
			if _, ok := l.rooms[id]; !ok {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	out := make([]RoomSchedule, 0, len(ids))
	for _, id := range ids {
		sessions := make([]Session, 0)
		if result != nil {
			for _, a := range result.ByRoom[id] {
				sessions = append(sessions, l.session(a))
			}
		}
		sortSessions(sessions)
		out = append(out, RoomSchedule{RoomID: id, Capacity: l.rooms[id].Capacity, Sessions: sessions})
	}
	return out
}

// TeacherSchedule lists every session taught by teacherID in day/time order.
func (l *Lookup) TeacherSchedule(result *Result, teacherID string) []Session {
	return l.sessions(result, func(a Assignment) bool { return a.TeacherID == teacherID })
}

// SectionSchedule lists every placed session of sectionID in day/time order.
func (l *Lookup) SectionSchedule(result *Result, sectionID string) []Session {
	return l.sessions(result, func(a Assignment) bool { return a.SectionID == sectionID })
}

// StudentSchedule lists the sessions of every section whose roster contains studentID.
func (l *Lookup) StudentSchedule(result *Result, studentID string) []Session {
	enrolled := make(map[string]bool)
	for id, section := range l.sections {
		for _, student := range section.StudentIDs {
			if student == studentID {
				enrolled[id] = true
				break
			}
		}
	}
	return l.sessions(result, func(a Assignment) bool { return enrolled[a.SectionID] })
}

// UnplacedReport is the flat admin warning list. It is never nil.
func UnplacedReport(result *Result) []UnplacedSection {
	if result == nil || len(result.Unplaced) == 0 {
		return []UnplacedSection{}
	}
	return append([]UnplacedSection(nil), result.Unplaced...)
}

// Utilization reports booked sessions against teachable (non-break) slots per room.
func (l *Lookup) Utilization(result *Result) []RoomUtilization {
	available := 0
	for _, slot := range l.slots {
		if !slot.IsBreak {
			available++
		}
	}
	out := make([]RoomUtilization, 0, len(l.roomIDs))
	for _, id := range l.roomIDs {
		count := 0
		if result != nil {
			count = len(result.ByRoom[id])
		}
		percent := 0.0
		if available > 0 {
			percent = math.Round(float64(count)/float64(available)*10000) / 100
		}
		out = append(out, RoomUtilization{
			RoomID:         id,
			Capacity:       l.rooms[id].Capacity,
			SessionCount:   count,
			AvailableSlots: available,
			Percent:        percent,
		})
	}
	return out
}

// Verify re-checks result against every hard constraint. maxPerDay <= 0 selects the default cap.
func (l *Lookup) Verify(result *Result, maxPerDay int) []Violation {
	if maxPerDay <= 0 {
		maxPerDay = DefaultMaxSessionsPerTeacherPerDay
	}
	violations := make([]Violation, 0)
	report := func(rule, format string, args ...interface{}) {
		violations = append(violations, Violation{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}
	if result == nil {
		return violations
	}

	rooms := make(map[roomSlot]string)
	teachers := make(map[teacherSlot]string)
	students := make(map[studentSlot]string)
	days := make(map[sectionDay]string)
	load := make(map[teacherDay]int)
	placed := make(map[string]int)

	for _, a := range result.Assignments() {
		room, roomOK := l.rooms[a.RoomID]
		slot, slotOK := l.slots[a.TimeslotID]
		if !roomOK || !slotOK {
			report(RuleUnknownReference, "section %s session %d references room %s / timeslot %s outside the catalog", a.SectionID, a.SessionIndex, a.RoomID, a.TimeslotID)
			continue
		}
		placed[a.SectionID]++

		if holder, taken := rooms[roomSlot{room: a.RoomID, slot: a.TimeslotID}]; taken {
			report(RuleRoomDoubleBooked, "room %s at %s holds sections %s and %s", a.RoomID, slot, holder, a.SectionID)
		}
		rooms[roomSlot{room: a.RoomID, slot: a.TimeslotID}] = a.SectionID

		if holder, taken := teachers[teacherSlot{teacher: a.TeacherID, slot: a.TimeslotID}]; taken {
			report(RuleTeacherDoubleBooked, "teacher %s at %s teaches sections %s and %s", a.TeacherID, slot, holder, a.SectionID)
		}
		teachers[teacherSlot{teacher: a.TeacherID, slot: a.TimeslotID}] = a.SectionID

		dayKey := sectionDay{section: a.SectionID, day: slot.Day}
		if _, used := days[dayKey]; used {
			report(RuleDistinctDay, "section %s meets more than once on %s", a.SectionID, slot.Day)
		}
		days[dayKey] = a.TimeslotID

		load[teacherDay{teacher: a.TeacherID, day: slot.Day}]++

		section, known := l.sections[a.SectionID]
		if !known {
			continue
		}
		if enrolled := section.Enrollment(); room.Capacity < enrolled {
			report(RuleCapacity, "room %s (capacity %d) is too small for section %s (%d enrolled)", a.RoomID, room.Capacity, a.SectionID, enrolled)
		}
		for _, student := range section.StudentIDs {
			key := studentSlot{student: student, slot: a.TimeslotID}
			if holder, taken := students[key]; taken && holder != a.SectionID {
				report(RuleStudentDoubleBooked, "student %s has sections %s and %s at %s", student, holder, a.SectionID, slot)
			}
			students[key] = a.SectionID
		}
	}

	loadKeys := make([]teacherDay, 0, len(load))
	for key, n := range load {
		if n > maxPerDay {
			loadKeys = append(loadKeys, key)
		}
	}
	sort.Slice(loadKeys, func(i, j int) bool {
		if loadKeys[i].teacher != loadKeys[j].teacher {
			return loadKeys[i].teacher < loadKeys[j].teacher
		}
		return loadKeys[i].day < loadKeys[j].day
	})
	for _, key := range loadKeys {
		report(RuleTeacherDailyLimit, "teacher %s has %d sessions on %s (limit %d)", key.teacher, load[key], key.day, maxPerDay)
	}

	sectionIDs := make([]string, 0, len(l.sections))
	for id := range l.sections {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)
	for _, id := range sectionIDs {
		course, ok := l.courses[l.sections[id].CourseID]
		if !ok || course.RequiredSessions <= 0 {
			continue
		}
		if got := placed[id] + result.MissingFor(id); got != course.RequiredSessions {
			report(RuleConservation, "section %s accounts for %d sessions, course %s requires %d", id, got, course.ID, course.RequiredSessions)
		}
	}
	return violations
}
