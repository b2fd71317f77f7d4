package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(id string, day Weekday, start, end string) Timeslot {
	return Timeslot{ID: id, Day: day, Start: MustClock(start), End: MustClock(end)}
}

func scenarioA() Input {
	return Input{
		Rooms: []Room{{ID: "R1", Capacity: 30}},
		Timeslots: []Timeslot{
			slot("mon-9", Monday, "09:00", "10:00"),
			slot("tue-9", Tuesday, "09:00", "10:00"),
		},
		Courses:  []Course{{ID: "CS101", Name: "Intro to CS", RequiredSessions: 2}},
		Teachers: []Teacher{{ID: "T1", Name: "Ada", TeachableCourseIDs: []string{"CS101"}}},
		Sections: []Section{{ID: "S1", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 25}},
	}
}

func generate(t *testing.T, in Input, opts Options) *Result {
	t.Helper()
	result, err := NewEngine(nil).Generate(context.Background(), in, opts)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestGenerateScenarioAPlacesBothSessions(t *testing.T) {
	result := generate(t, scenarioA(), Options{})

	assert.Equal(t, StatusComplete, result.Status)
	assert.Empty(t, result.Unplaced)
	require.Len(t, result.ByRoom["R1"], 2)
	assert.Equal(t, "mon-9", result.ByRoom["R1"][0].TimeslotID)
	assert.Equal(t, "tue-9", result.ByRoom["R1"][1].TimeslotID)
	assert.Equal(t, 1, result.ByRoom["R1"][0].SessionIndex)
	assert.Equal(t, 2, result.ByRoom["R1"][1].TotalSessions)
}

func TestGenerateScenarioBReportsThirdSession(t *testing.T) {
	in := scenarioA()
	in.Courses[0].RequiredSessions = 3

	result := generate(t, in, Options{})

	assert.Equal(t, StatusPartialWithUnplaced, result.Status)
	assert.Len(t, result.ByRoom["R1"], 2)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, UnplacedSection{SectionID: "S1", CourseID: "CS101", MissingSessionCount: 1}, result.Unplaced[0])
	require.Len(t, result.UnplacedRequirements, 1)
	assert.Equal(t, 3, result.UnplacedRequirements[0].SessionIndex)
	assert.Equal(t, ReasonNoDistinctDay, result.UnplacedRequirements[0].Reason)
}

func TestGenerateScenarioCCapacity(t *testing.T) {
	in := scenarioA()
	in.Rooms[0].Capacity = 20

	result := generate(t, in, Options{})

	assert.Equal(t, StatusPartialWithUnplaced, result.Status)
	assert.Empty(t, result.ByRoom["R1"])
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, 2, result.Unplaced[0].MissingSessionCount)
	for _, miss := range result.UnplacedRequirements {
		assert.Equal(t, ReasonNoRoomCapacity, miss.Reason)
	}
}

func TestGenerateScenarioDTeacherConflict(t *testing.T) {
	in := Input{
		Rooms:     []Room{{ID: "R1", Capacity: 40}, {ID: "R2", Capacity: 40}},
		Timeslots: []Timeslot{slot("mon-9", Monday, "09:00", "10:00")},
		Courses: []Course{
			{ID: "CS101", RequiredSessions: 1},
			{ID: "CS102", RequiredSessions: 1},
		},
		Teachers: []Teacher{{ID: "T1", TeachableCourseIDs: []string{"CS101", "CS102"}}},
		Sections: []Section{
			{ID: "small", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 10},
			{ID: "large", CourseID: "CS102", TeacherID: "T1", EnrolledCount: 30},
		},
	}

	result := generate(t, in, Options{})

	placed := result.Assignments()
	require.Len(t, placed, 1)
	assert.Equal(t, "large", placed[0].SectionID)
	require.Len(t, result.UnplacedRequirements, 1)
	assert.Equal(t, "small", result.UnplacedRequirements[0].SectionID)
	assert.Equal(t, ReasonTeacherConflict, result.UnplacedRequirements[0].Reason)
}

func TestGenerateZeroSectionsIsComplete(t *testing.T) {
	in := scenarioA()
	in.Sections = nil

	result := generate(t, in, Options{})

	assert.Equal(t, StatusComplete, result.Status)
	require.Contains(t, result.ByRoom, "R1")
	assert.NotNil(t, result.ByRoom["R1"])
	assert.Empty(t, result.ByRoom["R1"])
	assert.NotNil(t, result.Unplaced)
}

func TestGenerateRejectsUnqualifiedTeacher(t *testing.T) {
	in := scenarioA()
	in.Teachers[0].TeachableCourseIDs = []string{"MATH1"}

	result, err := NewEngine(nil).Generate(context.Background(), in, Options{})

	require.Error(t, err)
	assert.Nil(t, result)
	cfgErr, ok := AsConfigurationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"S1"}, cfgErr.SectionIDs)
}

func TestGenerateConfigurationErrors(t *testing.T) {
	cases := map[string]func(in *Input){
		"no rooms":          func(in *Input) { in.Rooms = nil },
		"duplicate room":    func(in *Input) { in.Rooms = append(in.Rooms, Room{ID: "R1", Capacity: 10}) },
		"zero capacity":     func(in *Input) { in.Rooms[0].Capacity = 0 },
		"duplicate slot":    func(in *Input) { in.Timeslots = append(in.Timeslots, in.Timeslots[0]) },
		"no slots":          func(in *Input) { in.Timeslots = nil },
		"inverted slot":     func(in *Input) { in.Timeslots[0].End = MustClock("08:00") },
		"invalid day":       func(in *Input) { in.Timeslots[0].Day = Weekday(7) },
		"overlapping slots": func(in *Input) { in.Timeslots = append(in.Timeslots, slot("mon-930", Monday, "09:30", "10:30")) },
		"only breaks": func(in *Input) {
			for i := range in.Timeslots {
				in.Timeslots[i].IsBreak = true
			}
		},
		"zero sessions":     func(in *Input) { in.Courses[0].RequiredSessions = 0 },
		"unknown course":    func(in *Input) { in.Sections[0].CourseID = "NOPE" },
		"unknown teacher":   func(in *Input) { in.Sections[0].TeacherID = "NOPE" },
		"negative enrolled": func(in *Input) { in.Sections[0].EnrolledCount = -1 },
		"duplicate section": func(in *Input) { in.Sections = append(in.Sections, in.Sections[0]) },
		"unknown unavailable slot": func(in *Input) {
			in.Teachers[0].UnavailableSlotIDs = []string{"mon-99"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := scenarioA()
			mutate(&in)
			_, err := NewEngine(nil).Generate(context.Background(), in, Options{})
			_, ok := AsConfigurationError(err)
			assert.True(t, ok, "expected configuration error, got %v", err)
		})
	}
}

func TestGenerateRejectsUnknownUnavailableSlot(t *testing.T) {
	in := scenarioA()
	in.Teachers[0].UnavailableSlotIDs = []string{"mon-9", "mon-99"}

	result, err := NewEngine(nil).Generate(context.Background(), in, Options{})

	require.Error(t, err)
	assert.Nil(t, result)
	cfgErr, ok := AsConfigurationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"teacher T1 marks unknown timeslot mon-99 unavailable"}, cfgErr.Problems)
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Generate(context.Background(), scenarioA(), Options{MaxSessionsPerTeacherPerDay: -1})
	_, ok := AsConfigurationError(err)
	assert.True(t, ok)

	_, err = engine.Generate(context.Background(), scenarioA(), Options{TieBreak: "RANDOM"})
	_, ok = AsConfigurationError(err)
	assert.True(t, ok)

	_, err = engine.Generate(context.Background(), scenarioA(), Options{PreserveExisting: true})
	_, ok = AsConfigurationError(err)
	assert.True(t, ok)
}

func TestGenerateMoreSessionsThanDays(t *testing.T) {
	in := scenarioA()
	in.Timeslots = nil
	for _, day := range Weekdays {
		in.Timeslots = append(in.Timeslots,
			slot(fmt.Sprintf("%d-9", day), day, "09:00", "10:00"),
			slot(fmt.Sprintf("%d-10", day), day, "10:00", "11:00"),
		)
	}
	in.Courses[0].RequiredSessions = 7

	result := generate(t, in, Options{})

	assert.Len(t, result.Assignments(), 5)
	assert.Equal(t, 2, result.MissingFor("S1"))
	for _, miss := range result.UnplacedRequirements {
		assert.Equal(t, ReasonNoDistinctDay, miss.Reason)
	}
}

// largeInput builds a catalog busy enough to exercise every constraint at once.
func largeInput() Input {
	in := Input{}
	for i := 1; i <= 4; i++ {
		in.Rooms = append(in.Rooms, Room{ID: fmt.Sprintf("R%d", i), Capacity: 15 * i})
	}
	for _, day := range Weekdays {
		for hour := 8; hour < 12; hour++ {
			in.Timeslots = append(in.Timeslots, slot(
				fmt.Sprintf("%s-%02d", day.String()[:3], hour), day,
				fmt.Sprintf("%02d:00", hour), fmt.Sprintf("%02d:50", hour),
			))
		}
	}
	for i := 1; i <= 6; i++ {
		in.Courses = append(in.Courses, Course{ID: fmt.Sprintf("C%d", i), RequiredSessions: 1 + i%4})
	}
	for i := 1; i <= 3; i++ {
		in.Teachers = append(in.Teachers, Teacher{
			ID:                 fmt.Sprintf("T%d", i),
			TeachableCourseIDs: []string{"C1", "C2", "C3", "C4", "C5", "C6"},
		})
	}
	for i := 1; i <= 14; i++ {
		section := Section{
			ID:        fmt.Sprintf("S%02d", i),
			CourseID:  fmt.Sprintf("C%d", 1+i%6),
			TeacherID: fmt.Sprintf("T%d", 1+i%3),
		}
		for s := 0; s < 5+(i*7)%50; s++ {
			section.StudentIDs = append(section.StudentIDs, fmt.Sprintf("st-%d", (i*3+s)%80))
		}
		in.Sections = append(in.Sections, section)
	}
	return in
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := generate(t, largeInput(), Options{})
	second := generate(t, largeInput(), Options{})
	assert.Equal(t, first, second)
}

func TestGenerateHonoursHardConstraints(t *testing.T) {
	in := largeInput()
	result := generate(t, in, Options{MaxSessionsPerTeacherPerDay: 2})

	assert.Empty(t, NewLookup(in).Verify(result, 2))

	sections := make(map[string]Section)
	for _, s := range in.Sections {
		sections[s.ID] = s
	}
	rooms := make(map[string]Room)
	for _, r := range in.Rooms {
		rooms[r.ID] = r
	}
	for _, a := range result.Assignments() {
		assert.GreaterOrEqual(t, rooms[a.RoomID].Capacity, sections[a.SectionID].Enrollment())
	}
	for _, s := range in.Sections {
		var required int
		for _, c := range in.Courses {
			if c.ID == s.CourseID {
				required = c.RequiredSessions
			}
		}
		placed := 0
		for _, a := range result.Assignments() {
			if a.SectionID == s.ID {
				placed++
			}
		}
		assert.Equal(t, required, placed+result.MissingFor(s.ID), "section %s", s.ID)
	}
	assert.Equal(t, result.Stats.Requirements, result.Stats.Placed+result.Stats.Unplaced)
}

func TestGenerateOrdersRoomAssignmentsByDayThenTime(t *testing.T) {
	in := scenarioA()
	in.Timeslots = []Timeslot{
		slot("tue-9", Tuesday, "09:00", "10:00"),
		slot("mon-11", Monday, "11:00", "12:00"),
		slot("mon-9", Monday, "09:00", "10:00"),
	}
	in.Courses[0].RequiredSessions = 1
	in.Sections = append(in.Sections,
		Section{ID: "S2", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 20},
		Section{ID: "S3", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 10},
	)

	result := generate(t, in, Options{})

	var order []string
	for _, a := range result.ByRoom["R1"] {
		order = append(order, a.TimeslotID)
	}
	assert.Equal(t, []string{"mon-9", "mon-11", "tue-9"}, order)
}

func TestGeneratePrefersTightestRoom(t *testing.T) {
	in := scenarioA()
	in.Rooms = []Room{{ID: "hall", Capacity: 200}, {ID: "lab", Capacity: 26}, {ID: "closet", Capacity: 5}}

	result := generate(t, in, Options{})

	assert.Len(t, result.ByRoom["lab"], 2)
	assert.Empty(t, result.ByRoom["hall"])
	assert.Empty(t, result.ByRoom["closet"])
}

func TestGenerateFirstFitKeepsInputOrder(t *testing.T) {
	in := Input{
		Rooms:     []Room{{ID: "R1", Capacity: 50}},
		Timeslots: []Timeslot{slot("mon-9", Monday, "09:00", "10:00")},
		Courses:   []Course{{ID: "CS101", RequiredSessions: 1}},
		Teachers:  []Teacher{{ID: "T1", TeachableCourseIDs: []string{"CS101"}}},
		Sections: []Section{
			{ID: "small", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 5},
			{ID: "large", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 45},
		},
	}

	result := generate(t, in, Options{TieBreak: TieBreakFirstFit})
	require.Len(t, result.Assignments(), 1)
	assert.Equal(t, "small", result.Assignments()[0].SectionID)

	result = generate(t, in, Options{})
	require.Len(t, result.Assignments(), 1)
	assert.Equal(t, "large", result.Assignments()[0].SectionID)
}

func TestGenerateTeacherDailyLimit(t *testing.T) {
	in := Input{
		Rooms: []Room{{ID: "R1", Capacity: 50}},
		Timeslots: []Timeslot{
			slot("mon-9", Monday, "09:00", "10:00"),
			slot("mon-10", Monday, "10:00", "11:00"),
			slot("mon-11", Monday, "11:00", "12:00"),
		},
		Courses:  []Course{{ID: "CS101", RequiredSessions: 1}},
		Teachers: []Teacher{{ID: "T1", TeachableCourseIDs: []string{"CS101"}}},
		Sections: []Section{
			{ID: "A", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 20},
			{ID: "B", CourseID: "CS101", TeacherID: "T1", EnrolledCount: 10},
		},
	}

	result := generate(t, in, Options{MaxSessionsPerTeacherPerDay: 1})

	require.Len(t, result.UnplacedRequirements, 1)
	assert.Equal(t, "B", result.UnplacedRequirements[0].SectionID)
	assert.Equal(t, ReasonTeacherDailyLimit, result.UnplacedRequirements[0].Reason)
}

func TestGenerateStudentConflicts(t *testing.T) {
	in := Input{
		Rooms:     []Room{{ID: "R1", Capacity: 50}, {ID: "R2", Capacity: 50}, {ID: "R3", Capacity: 50}},
		Timeslots: []Timeslot{slot("mon-9", Monday, "09:00", "10:00")},
		Courses:   []Course{{ID: "CS101", RequiredSessions: 1}, {ID: "MA101", RequiredSessions: 1}},
		Teachers: []Teacher{
			{ID: "T1", TeachableCourseIDs: []string{"CS101"}},
			{ID: "T2", TeachableCourseIDs: []string{"MA101"}},
		},
		Sections: []Section{
			{ID: "cs", CourseID: "CS101", TeacherID: "T1", StudentIDs: []string{"alice", "bob"}},
			{ID: "ma", CourseID: "MA101", TeacherID: "T2", StudentIDs: []string{"bob"}},
		},
	}

	result := generate(t, in, Options{})
	require.Len(t, result.UnplacedRequirements, 1)
	assert.Equal(t, "ma", result.UnplacedRequirements[0].SectionID)
	assert.Equal(t, ReasonStudentConflict, result.UnplacedRequirements[0].Reason)

	result = generate(t, in, Options{IgnoreStudentConflicts: true})
	assert.Equal(t, StatusComplete, result.Status)
	assert.Len(t, result.Assignments(), 2)
}

func TestGenerateSkipsBreaksAndUnavailableSlots(t *testing.T) {
	in := scenarioA()
	in.Courses[0].RequiredSessions = 1
	in.Timeslots = []Timeslot{
		{ID: "mon-break", Day: Monday, Start: MustClock("08:00"), End: MustClock("09:00"), IsBreak: true},
		slot("mon-9", Monday, "09:00", "10:00"),
		slot("tue-9", Tuesday, "09:00", "10:00"),
	}
	in.Teachers[0].UnavailableSlotIDs = []string{"mon-9"}

	result := generate(t, in, Options{})

	require.Len(t, result.ByRoom["R1"], 1)
	assert.Equal(t, "tue-9", result.ByRoom["R1"][0].TimeslotID)

	in.Teachers[0].UnavailableSlotIDs = []string{"mon-9", "tue-9"}
	result = generate(t, in, Options{})
	require.Len(t, result.UnplacedRequirements, 1)
	assert.Equal(t, ReasonTeacherUnavailable, result.UnplacedRequirements[0].Reason)
}

func TestGeneratePreserveExisting(t *testing.T) {
	in := scenarioA()
	in.Courses[0].RequiredSessions = 1
	base := generate(t, in, Options{})
	require.Equal(t, "mon-9", base.ByRoom["R1"][0].TimeslotID)

	in.Courses = append(in.Courses, Course{ID: "CS102", RequiredSessions: 1})
	in.Teachers[0].TeachableCourseIDs = append(in.Teachers[0].TeachableCourseIDs, "CS102")
	in.Sections = append(in.Sections, Section{ID: "S2", CourseID: "CS102", TeacherID: "T1", EnrolledCount: 29})

	result := generate(t, in, Options{PreserveExisting: true, Existing: base})

	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, 1, result.Stats.Seeded)
	assert.Equal(t, 1, result.Stats.Placed)
	require.Len(t, result.ByRoom["R1"], 2)
	assert.Equal(t, "S1", result.ByRoom["R1"][0].SectionID)
	assert.Equal(t, "mon-9", result.ByRoom["R1"][0].TimeslotID)
	assert.Equal(t, "S2", result.ByRoom["R1"][1].SectionID)
	assert.Equal(t, "tue-9", result.ByRoom["R1"][1].TimeslotID)
}

func TestGeneratePreserveExistingRejectsDoubleBookedSeed(t *testing.T) {
	in := scenarioA()
	seed := &Result{ByRoom: map[string][]Assignment{
		"R1": {
			{SectionID: "X", CourseID: "X1", TeacherID: "T9", RoomID: "R1", TimeslotID: "mon-9", SessionIndex: 1, TotalSessions: 1},
			{SectionID: "Y", CourseID: "Y1", TeacherID: "T8", RoomID: "R1", TimeslotID: "mon-9", SessionIndex: 1, TotalSessions: 1},
		},
	}}

	_, err := NewEngine(nil).Generate(context.Background(), in, Options{PreserveExisting: true, Existing: seed})

	_, ok := AsConfigurationError(err)
	assert.True(t, ok)
}

func TestGeneratePreserveExistingDropsStaleSeeds(t *testing.T) {
	in := scenarioA()
	seed := &Result{ByRoom: map[string][]Assignment{
		"R1": {{SectionID: "S1", CourseID: "CS101", TeacherID: "someone-else", RoomID: "R1", TimeslotID: "mon-9", SessionIndex: 1, TotalSessions: 2}},
	}}

	result := generate(t, in, Options{PreserveExisting: true, Existing: seed})

	assert.Equal(t, 0, result.Stats.Seeded)
	assert.Equal(t, StatusComplete, result.Status)
	for _, a := range result.Assignments() {
		assert.Equal(t, "T1", a.TeacherID)
	}
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewEngine(nil).Generate(ctx, scenarioA(), Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakLargestSectionFirst, tb)

	tb, err = ParseTieBreak("first-fit")
	require.NoError(t, err)
	assert.Equal(t, TieBreakFirstFit, tb)

	_, err = ParseTieBreak("random")
	assert.Error(t, err)
}
