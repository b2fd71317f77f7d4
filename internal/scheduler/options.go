package scheduler

import (
	"fmt"
	"strings"
)

// DefaultMaxSessionsPerTeacherPerDay caps a teacher's daily load when Options leaves it unset.
const DefaultMaxSessionsPerTeacherPerDay = 5

// TieBreak selects how session requirements are ordered before placement.
type TieBreak string

const (
	// TieBreakLargestSectionFirst places large sections first (fewer rooms fit them).
	TieBreakLargestSectionFirst TieBreak = "LARGEST_SECTION_FIRST"
	// TieBreakFirstFit keeps the caller's section order.
	TieBreakFirstFit TieBreak = "FIRST_FIT"
)

// ParseTieBreak normalises user input; empty input selects the default.
func ParseTieBreak(raw string) (TieBreak, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch TieBreak(value) {
	case "":
		return TieBreakLargestSectionFirst, nil
	case TieBreakLargestSectionFirst, TieBreakFirstFit:
		return TieBreak(value), nil
	}
	return "", fmt.Errorf("unknown tie-break %q", raw)
}

// Options tunes a single Generate call.
type Options struct {
	// MaxSessionsPerTeacherPerDay defaults to DefaultMaxSessionsPerTeacherPerDay when zero.
	MaxSessionsPerTeacherPerDay int
	// PreserveExisting seeds the conflict index with Existing instead of starting empty.
	PreserveExisting bool
	Existing         *Result
	TieBreak         TieBreak
	// IgnoreStudentConflicts disables the shared-roster check between sections.
	IgnoreStudentConflicts bool
}

func (o Options) withDefaults() Options {
	if o.MaxSessionsPerTeacherPerDay == 0 {
		o.MaxSessionsPerTeacherPerDay = DefaultMaxSessionsPerTeacherPerDay
	}
	if o.TieBreak == "" {
		o.TieBreak = TieBreakLargestSectionFirst
	}
	return o
}
