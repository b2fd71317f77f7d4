package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// TimetableRow is one placed session in the exported timetable.
type TimetableRow struct {
	RoomID     string `csv:"room"`
	Day        string `csv:"day"`
	Start      string `csv:"start"`
	End        string `csv:"end"`
	CourseID   string `csv:"course"`
	SectionID  string `csv:"section"`
	TeacherID  string `csv:"teacher"`
	Session    string `csv:"session"`
	Enrollment int    `csv:"enrolled"`
}

// UnplacedRow is one session the engine could not place.
type UnplacedRow struct {
	SectionID string `csv:"section"`
	CourseID  string `csv:"course"`
	TeacherID string `csv:"teacher"`
	Session   string `csv:"session"`
	Reason    string `csv:"reason"`
}

// Writer emits timetables with a configurable delimiter.
type Writer struct {
	Delimiter rune
}

// NewWriter returns a writer for the given delimiter; zero means comma.
func NewWriter(delim rune) *Writer {
	if delim == 0 {
		delim = ','
	}
	return &Writer{Delimiter: delim}
}

// TimetableRows flattens a result in room, day, start order.
func TimetableRows(in scheduler.Input, result *scheduler.Result) []TimetableRow {
	lookup := scheduler.NewLookup(in)
	rows := []TimetableRow{}
	for _, room := range lookup.RoomTimetable(result) {
		for _, s := range room.Sessions {
			rows = append(rows, TimetableRow{
				RoomID:     s.RoomID,
				Day:        s.Day.String(),
				Start:      s.Start.String(),
				End:        s.End.String(),
				CourseID:   s.CourseID,
				SectionID:  s.SectionID,
				TeacherID:  s.TeacherID,
				Session:    fmt.Sprintf("%d/%d", s.SessionIndex, s.TotalSessions),
				Enrollment: s.Enrolled,
			})
		}
	}
	return rows
}

// UnplacedRows lists every unplaced session with its diagnostic reason.
func UnplacedRows(result *scheduler.Result) []UnplacedRow {
	rows := make([]UnplacedRow, 0, len(result.UnplacedRequirements))
	for _, req := range result.UnplacedRequirements {
		rows = append(rows, UnplacedRow{
			SectionID: req.SectionID,
			CourseID:  req.CourseID,
			TeacherID: req.TeacherID,
			Session:   fmt.Sprintf("%d/%d", req.SessionIndex, req.TotalSessions),
			Reason:    string(req.Reason),
		})
	}
	return rows
}

// WriteTimetable writes the placed sessions of result to out.
func (w *Writer) WriteTimetable(out io.Writer, in scheduler.Input, result *scheduler.Result) error {
	rows := TimetableRows(in, result)
	return w.marshal(&rows, out)
}

// WriteUnplaced writes the unplaced sessions of result to out.
func (w *Writer) WriteUnplaced(out io.Writer, result *scheduler.Result) error {
	rows := UnplacedRows(result)
	return w.marshal(&rows, out)
}

// WriteTimetableFile replaces path with the timetable CSV.
func (w *Writer) WriteTimetableFile(path string, in scheduler.Input, result *scheduler.Result) error {
	return writeFile(path, func(f io.Writer) error { return w.WriteTimetable(f, in, result) })
}

// WriteUnplacedFile replaces path with the unplaced report CSV.
func (w *Writer) WriteUnplacedFile(path string, result *scheduler.Result) error {
	return writeFile(path, func(f io.Writer) error { return w.WriteUnplaced(f, result) })
}

func (w *Writer) marshal(rows interface{}, out io.Writer) error {
	writer := csv.NewWriter(out)
	writer.Comma = w.Delimiter
	return gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer))
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
