package csvio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/scheduler"
)

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func sampleCatalog() map[string]string {
	return map[string]string{
		RoomsFile:     "id,capacity\nR1,30\nR2,10\n",
		TimeslotsFile: "id,day,start,end,is_break\nmon-9,Monday,9:00,10:00,false\ntue-9,tue,09:00,10:00,\nwed-12,3,12:00,13:00,true\n",
		CoursesFile:   "id,name,required_sessions,credits\nCS101,Intro,2,3\n",
		TeachersFile:  "id,name,teachable_courses,unavailable_slots\nT1,Ada,CS101|MA201,\n",
		SectionsFile:  "id,course_id,teacher_id,enrolled,students\nS1,CS101,T1,0,stu-1|stu-2| stu-3\n",
	}
}

func TestLoadDirParsesCatalog(t *testing.T) {
	dir := writeCatalog(t, sampleCatalog())

	in, err := NewLoader(0).LoadDir(dir)
	require.NoError(t, err)

	require.Len(t, in.Rooms, 2)
	assert.Equal(t, scheduler.Room{ID: "R2", Capacity: 10}, in.Rooms[1])

	require.Len(t, in.Timeslots, 3)
	assert.Equal(t, scheduler.Monday, in.Timeslots[0].Day)
	assert.Equal(t, scheduler.MustClock("09:00"), in.Timeslots[0].Start)
	assert.Equal(t, scheduler.Tuesday, in.Timeslots[1].Day)
	assert.Equal(t, scheduler.Wednesday, in.Timeslots[2].Day)
	assert.True(t, in.Timeslots[2].IsBreak)

	assert.Equal(t, []string{"CS101", "MA201"}, in.Teachers[0].TeachableCourseIDs)
	assert.Nil(t, in.Teachers[0].UnavailableSlotIDs)
	assert.Equal(t, []string{"stu-1", "stu-2", "stu-3"}, in.Sections[0].StudentIDs)
	assert.Equal(t, 3, in.Sections[0].Enrollment())
}

func TestLoadDirReportsMissingFileAndBadRows(t *testing.T) {
	files := sampleCatalog()
	delete(files, SectionsFile)
	_, err := NewLoader(',').LoadDir(writeCatalog(t, files))
	require.Error(t, err)
	assert.Contains(t, err.Error(), SectionsFile)

	files = sampleCatalog()
	files[TimeslotsFile] = "id,day,start,end\nsat-9,Saturday,09:00,10:00\n"
	_, err = NewLoader(',').LoadDir(writeCatalog(t, files))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")

	files = sampleCatalog()
	files[RoomsFile] = "id,capacity\nR1,lots\n"
	_, err = NewLoader(',').LoadDir(writeCatalog(t, files))
	assert.Error(t, err)
}

func TestLoaderHonoursDelimiterAndEmptyFiles(t *testing.T) {
	rooms, err := NewLoader(';').ReadRooms(strings.NewReader("id;capacity\nR1;25\n"))
	require.NoError(t, err)
	assert.Equal(t, []scheduler.Room{{ID: "R1", Capacity: 25}}, rooms)

	rooms, err = NewLoader(';').ReadRooms(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestWriterEmitsTimetableAndUnplaced(t *testing.T) {
	in, err := NewLoader(0).LoadDir(writeCatalog(t, sampleCatalog()))
	require.NoError(t, err)
	// S1 is larger so it takes both teachable slots and leaves T1 no room for S2.
	in.Courses = append(in.Courses, scheduler.Course{ID: "MA201", RequiredSessions: 3})
	in.Sections = append(in.Sections, scheduler.Section{ID: "S2", CourseID: "MA201", TeacherID: "T1", EnrolledCount: 2})

	result, err := scheduler.NewEngine(nil).Generate(context.Background(), in, scheduler.Options{})
	require.NoError(t, err)
	require.Equal(t, scheduler.StatusPartialWithUnplaced, result.Status)

	var timetable bytes.Buffer
	require.NoError(t, NewWriter(0).WriteTimetable(&timetable, in, result))
	lines := strings.Split(strings.TrimSpace(timetable.String()), "\n")
	assert.Equal(t, "room,day,start,end,course,section,teacher,session,enrolled", lines[0])
	assert.Len(t, lines, 1+result.Stats.Placed)
	assert.Contains(t, timetable.String(), ",CS101,S1,T1,1/2,3")

	var unplaced bytes.Buffer
	require.NoError(t, NewWriter(';').WriteUnplaced(&unplaced, result))
	rows := strings.Split(strings.TrimSpace(unplaced.String()), "\n")
	assert.Equal(t, "section;course;teacher;session;reason", rows[0])
	assert.Len(t, rows, 1+result.Stats.Unplaced)
	assert.Contains(t, unplaced.String(), "S2;MA201;T1;1/3;TEACHER_CONFLICT")
}

func TestWriteTimetableFile(t *testing.T) {
	in := scheduler.Input{
		Rooms:     []scheduler.Room{{ID: "R1", Capacity: 10}},
		Timeslots: []scheduler.Timeslot{{ID: "mon-9", Day: scheduler.Monday, Start: scheduler.MustClock("09:00"), End: scheduler.MustClock("10:00")}},
		Courses:   []scheduler.Course{{ID: "CS101", RequiredSessions: 1}},
		Teachers:  []scheduler.Teacher{{ID: "T1", TeachableCourseIDs: []string{"CS101"}}},
		Sections:  []scheduler.Section{{ID: "S1", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 8}},
	}
	result, err := scheduler.NewEngine(nil).Generate(context.Background(), in, scheduler.Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, NewWriter(0).WriteTimetableFile(path, in, result))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "room,day,start,end,course,section,teacher,session,enrolled\nR1,Monday,09:00,10:00,CS101,S1,T1,1/1,8\n", string(content))
}
