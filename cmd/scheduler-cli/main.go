package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/csvio"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes one generation pass and returns the process exit code.
func run(args []string, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return exitError
	}

	flags := flag.NewFlagSet("scheduler-cli", flag.ContinueOnError)

	input := flags.String("input", ".", "directory holding rooms.csv, timeslots.csv, courses.csv, teachers.csv and sections.csv")
	output := flags.String("out", "timetable.csv", "timetable CSV to write")
	unplacedOut := flags.String("unplaced", "unplaced.csv", "unplaced report CSV to write; empty skips it")
	delimiter := flags.String("delimiter", ",", "CSV field delimiter")
	maxPerDay := flags.Int("max-per-day", cfg.Scheduler.MaxSessionsPerDay, "maximum sessions per teacher per day")
	tieBreak := flags.String("tie-break", cfg.Scheduler.TieBreak, "LARGEST_SECTION_FIRST or FIRST_FIT")
	ignoreStudents := flags.Bool("ignore-student-conflicts", cfg.Scheduler.IgnoreStudentClashes, "skip the shared-roster check")
	timeout := flags.Duration("timeout", cfg.Scheduler.Timeout, "generation deadline")
	verify := flags.Bool("verify", true, "re-check the result against every hard constraint")
	if err := flags.Parse(args); err != nil {
		return exitError
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return exitError
	}
	defer logr.Sync() //nolint:errcheck

	delim, size := utf8.DecodeRuneInString(*delimiter)
	if size == 0 || size != len(*delimiter) {
		logr.Error("delimiter must be a single character", zap.String("delimiter", *delimiter))
		return exitError
	}
	tb, err := scheduler.ParseTieBreak(*tieBreak)
	if err != nil {
		logr.Error("invalid tie break", zap.Error(err))
		return exitError
	}

	in, err := csvio.NewLoader(delim).LoadDir(*input)
	if err != nil {
		logr.Error("failed to load catalog", zap.Error(err))
		return exitError
	}
	logr.Info("catalog loaded",
		zap.Int("rooms", len(in.Rooms)),
		zap.Int("timeslots", len(in.Timeslots)),
		zap.Int("courses", len(in.Courses)),
		zap.Int("teachers", len(in.Teachers)),
		zap.Int("sections", len(in.Sections)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := scheduler.Options{
		MaxSessionsPerTeacherPerDay: *maxPerDay,
		TieBreak:                    tb,
		IgnoreStudentConflicts:      *ignoreStudents,
	}
	start := time.Now()
	result, err := scheduler.NewEngine(logr).Generate(ctx, in, opts)
	if err != nil {
		if cfgErr, ok := scheduler.AsConfigurationError(err); ok {
			for _, problem := range cfgErr.Problems {
				logr.Error("configuration problem", zap.String("problem", problem))
			}
		}
		logr.Error("generation failed", zap.Error(err))
		return exitError
	}

	writer := csvio.NewWriter(delim)
	if err := writer.WriteTimetableFile(*output, in, result); err != nil {
		logr.Error("failed to write timetable", zap.Error(err))
		return exitError
	}
	if *unplacedOut != "" {
		if err := writer.WriteUnplacedFile(*unplacedOut, result); err != nil {
			logr.Error("failed to write unplaced report", zap.Error(err))
			return exitError
		}
	}

	logr.Info("schedule generated",
		zap.String("status", string(result.Status)),
		zap.Int("placed", result.Stats.Placed),
		zap.Int("unplaced", result.Stats.Unplaced),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("out", *output),
	)
	for _, section := range result.Unplaced {
		fmt.Fprintf(stdout, "unplaced %s (%s): %d session(s) missing\n", section.SectionID, section.CourseID, section.MissingSessionCount)
	}

	if *verify {
		limit := *maxPerDay
		if limit == 0 {
			limit = scheduler.DefaultMaxSessionsPerTeacherPerDay
		}
		violations := scheduler.NewLookup(in).Verify(result, limit)
		for _, v := range violations {
			logr.Error("constraint violated", zap.String("rule", v.Rule), zap.String("message", v.Message))
		}
		if len(violations) > 0 {
			return exitError
		}
	}

	if result.Status != scheduler.StatusComplete {
		return exitPartial
	}
	return exitOK
}
