package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday identifies one of the five teaching days.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
}

// Weekdays lists the teaching days in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// Valid reports whether d is one of Monday..Friday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Weekday(%d)", int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts a day name or its number, quoted or not.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	parsed, err := ParseWeekday(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWeekday accepts full names, three-letter abbreviations (any case) and 1..5.
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil {
		day := Weekday(n)
		if !day.Valid() {
			return 0, fmt.Errorf("weekday %d out of range 1-5", n)
		}
		return day, nil
	}
	for day, name := range weekdayNames {
		upper := strings.ToUpper(name)
		if value == upper || value == upper[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// Clock is a time of day expressed in minutes after midnight.
type Clock int

// ParseClock parses HH:MM (or HH:MM:SS as returned by Postgres TIME columns).
func ParseClock(raw string) (Clock, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", raw)
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Room is a bookable teaching space.
type Room struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
}

// Timeslot is a weekly recurring window shared by every room. Break slots are never scheduled.
type Timeslot struct {
	ID      string  `json:"id"`
	Day     Weekday `json:"day"`
	Start   Clock   `json:"start"`
	End     Clock   `json:"end"`
	IsBreak bool    `json:"isBreak,omitempty"`
}

func (t Timeslot) String() string {
	return fmt.Sprintf("%s %s-%s", t.Day, t.Start, t.End)
}

// Teacher carries the qualification map and blocked slots used by the scheduler.
type Teacher struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name,omitempty"`
	TeachableCourseIDs []string `json:"teachableCourseIds"`
	UnavailableSlotIDs []string `json:"unavailableSlotIds,omitempty"`
}

// CanTeach reports whether the teacher is qualified for courseID.
func (t Teacher) CanTeach(courseID string) bool {
	for _, id := range t.TeachableCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// Course describes how many weekly sessions each of its sections needs.
type Course struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	RequiredSessions int    `json:"requiredSessions"`
	Credits          int    `json:"credits,omitempty"`
}

// Section is one taught instance of a course.
type Section struct {
	ID            string   `json:"id"`
	CourseID      string   `json:"courseId"`
	TeacherID     string   `json:"teacherId"`
	StudentIDs    []string `json:"studentIds,omitempty"`
	EnrolledCount int      `json:"enrolledCount"`
}

// Enrollment is the seat requirement: the roster size when a roster is known,
// otherwise the declared enrolled count.
func (s Section) Enrollment() int {
	if len(s.StudentIDs) > 0 {
		return len(s.StudentIDs)
	}
	return s.EnrolledCount
}

// SessionRequirement is one weekly meeting of a section waiting for a room and slot.
type SessionRequirement struct {
	SectionID     string   `json:"sectionId"`
	CourseID      string   `json:"courseId"`
	TeacherID     string   `json:"teacherId"`
	SessionIndex  int      `json:"sessionIndex"`
	TotalSessions int      `json:"totalSessions"`
	Enrollment    int      `json:"enrollment"`
	StudentIDs    []string `json:"-"`
}

// Assignment places one session requirement into a room and timeslot.
type Assignment struct {
	SectionID     string `json:"sectionId"`
	CourseID      string `json:"courseId"`
	TeacherID     string `json:"teacherId"`
	RoomID        string `json:"roomId"`
	TimeslotID    string `json:"timeslotId"`
	SessionIndex  int    `json:"sessionIndex"`
	TotalSessions int    `json:"totalSessions"`
}

// Input bundles the read-only catalog consumed by one Generate call.
type Input struct {
	Rooms     []Room     `json:"rooms"`
	Timeslots []Timeslot `json:"timeslots"`
	Courses   []Course   `json:"courses"`
	Teachers  []Teacher  `json:"teachers"`
	Sections  []Section  `json:"sections"`
}
