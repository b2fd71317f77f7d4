// Package csvio reads scheduler catalogs from CSV files and writes timetables back out.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// Catalog file names expected inside an input directory.
const (
	RoomsFile     = "rooms.csv"
	TimeslotsFile = "timeslots.csv"
	CoursesFile   = "courses.csv"
	TeachersFile  = "teachers.csv"
	SectionsFile  = "sections.csv"
)

// listSeparator splits multi-valued cells such as teachable courses or rosters.
const listSeparator = "|"

type roomRow struct {
	ID       string `csv:"id"`
	Capacity int    `csv:"capacity"`
}

type timeslotRow struct {
	ID      string `csv:"id"`
	Day     string `csv:"day"`
	Start   string `csv:"start"`
	End     string `csv:"end"`
	IsBreak bool   `csv:"is_break,omitempty"`
}

type courseRow struct {
	ID               string `csv:"id"`
	Name             string `csv:"name"`
	RequiredSessions int    `csv:"required_sessions"`
	Credits          int    `csv:"credits,omitempty"`
}

type teacherRow struct {
	ID                 string `csv:"id"`
	Name               string `csv:"name"`
	TeachableCourseIDs string `csv:"teachable_courses"`
	UnavailableSlotIDs string `csv:"unavailable_slots,omitempty"`
}

type sectionRow struct {
	ID            string `csv:"id"`
	CourseID      string `csv:"course_id"`
	TeacherID     string `csv:"teacher_id"`
	EnrolledCount int    `csv:"enrolled,omitempty"`
	StudentIDs    string `csv:"students,omitempty"`
}

// Loader parses catalog CSVs with a configurable delimiter.
type Loader struct {
	Delimiter rune
}

// NewLoader returns a loader for the given delimiter; zero means comma.
func NewLoader(delim rune) *Loader {
	if delim == 0 {
		delim = ','
	}
	return &Loader{Delimiter: delim}
}

// LoadDir reads the five catalog files from dir into a scheduler input.
func (l *Loader) LoadDir(dir string) (scheduler.Input, error) {
	var in scheduler.Input
	readers := []struct {
		name string
		read func(io.Reader) error
	}{
		{RoomsFile, func(r io.Reader) (err error) { in.Rooms, err = l.ReadRooms(r); return }},
		{TimeslotsFile, func(r io.Reader) (err error) { in.Timeslots, err = l.ReadTimeslots(r); return }},
		{CoursesFile, func(r io.Reader) (err error) { in.Courses, err = l.ReadCourses(r); return }},
		{TeachersFile, func(r io.Reader) (err error) { in.Teachers, err = l.ReadTeachers(r); return }},
		{SectionsFile, func(r io.Reader) (err error) { in.Sections, err = l.ReadSections(r); return }},
	}
	for _, item := range readers {
		path := filepath.Join(dir, item.name)
		if err := readFile(path, item.read); err != nil {
			return scheduler.Input{}, err
		}
	}
	return in, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck
	if err := read(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ReadRooms parses id,capacity rows.
func (l *Loader) ReadRooms(r io.Reader) ([]scheduler.Room, error) {
	var rows []roomRow
	if err := l.unmarshal(r, &rows); err != nil {
		return nil, err
	}
	rooms := make([]scheduler.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, scheduler.Room{ID: strings.TrimSpace(row.ID), Capacity: row.Capacity})
	}
	return rooms, nil
}

// ReadTimeslots parses id,day,start,end[,is_break] rows. Days accept names, abbreviations or 1..5.
func (l *Loader) ReadTimeslots(r io.Reader) ([]scheduler.Timeslot, error) {
	var rows []timeslotRow
	if err := l.unmarshal(r, &rows); err != nil {
		return nil, err
	}
	slots := make([]scheduler.Timeslot, 0, len(rows))
	for i, row := range rows {
		day, err := scheduler.ParseWeekday(row.Day)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		start, err := scheduler.ParseClock(row.Start)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		end, err := scheduler.ParseClock(row.End)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		slots = append(slots, scheduler.Timeslot{
			ID:      strings.TrimSpace(row.ID),
			Day:     day,
			Start:   start,
			End:     end,
			IsBreak: row.IsBreak,
		})
	}
	return slots, nil
}

// ReadCourses parses id,name,required_sessions[,credits] rows.
func (l *Loader) ReadCourses(r io.Reader) ([]scheduler.Course, error) {
	var rows []courseRow
	if err := l.unmarshal(r, &rows); err != nil {
		return nil, err
	}
	courses := make([]scheduler.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, scheduler.Course{
			ID:               strings.TrimSpace(row.ID),
			Name:             strings.TrimSpace(row.Name),
			RequiredSessions: row.RequiredSessions,
			Credits:          row.Credits,
		})
	}
	return courses, nil
}

// ReadTeachers parses id,name,teachable_courses[,unavailable_slots] rows with pipe-separated lists.
func (l *Loader) ReadTeachers(r io.Reader) ([]scheduler.Teacher, error) {
	var rows []teacherRow
	if err := l.unmarshal(r, &rows); err != nil {
		return nil, err
	}
	teachers := make([]scheduler.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, scheduler.Teacher{
			ID:                 strings.TrimSpace(row.ID),
			Name:               strings.TrimSpace(row.Name),
			TeachableCourseIDs: splitList(row.TeachableCourseIDs),
			UnavailableSlotIDs: splitList(row.UnavailableSlotIDs),
		})
	}
	return teachers, nil
}

// ReadSections parses id,course_id,teacher_id[,enrolled][,students] rows.
func (l *Loader) ReadSections(r io.Reader) ([]scheduler.Section, error) {
	var rows []sectionRow
	if err := l.unmarshal(r, &rows); err != nil {
		return nil, err
	}
	sections := make([]scheduler.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, scheduler.Section{
			ID:            strings.TrimSpace(row.ID),
			CourseID:      strings.TrimSpace(row.CourseID),
			TeacherID:     strings.TrimSpace(row.TeacherID),
			EnrolledCount: row.EnrolledCount,
			StudentIDs:    splitList(row.StudentIDs),
		})
	}
	return sections, nil
}

func (l *Loader) unmarshal(r io.Reader, out interface{}) error {
	reader := csv.NewReader(r)
	reader.Comma = l.Delimiter
	reader.TrimLeadingSpace = true
	if err := gocsv.UnmarshalCSV(reader, out); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return err
	}
	return nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
