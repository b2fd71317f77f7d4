package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type scheduleRunRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error
	List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	FindPublished(ctx context.Context) (*models.ScheduleRun, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleRunStatus) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, keepID string) (int64, error)
}

type scheduleAssignmentRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.ScheduleAssignment) error
	ListByRun(ctx context.Context, runID string) ([]models.ScheduleAssignment, error)
}

type catalogSnapshotter interface {
	Snapshot(ctx context.Context) (scheduler.Input, error)
}

type scheduleEngine interface {
	Generate(ctx context.Context, in scheduler.Input, opts scheduler.Options) (*scheduler.Result, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

const (
	proposalCachePrefix = "schedule:proposal:"
	runCachePrefix      = "schedule:run:"
)

func runAssignmentsKey(runID string) string {
	return runCachePrefix + runID + ":assignments"
}

// ScheduleGeneratorService builds timetable proposals and persists schedule runs.
type ScheduleGeneratorService struct {
	catalog     catalogSnapshotter
	engine      scheduleEngine
	runs        scheduleRunRepository
	assignments scheduleAssignmentRepository
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	store       *proposalStore
	cfg         ScheduleGeneratorConfig
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	ProposalTTL            time.Duration
	Timeout                time.Duration
	MaxSessionsPerDay      int
	TieBreak               scheduler.TieBreak
	IgnoreStudentConflicts bool
}

// NewScheduleGeneratorService wires scheduler dependencies.
func NewScheduleGeneratorService(
	catalog catalogSnapshotter,
	engine scheduleEngine,
	runs scheduleRunRepository,
	assignments scheduleAssignmentRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = scheduler.NewEngine(logger)
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = scheduler.TieBreakLargestSectionFirst
	}
	return &ScheduleGeneratorService{
		catalog:     catalog,
		engine:      engine,
		runs:        runs,
		assignments: assignments,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		store:       newProposalStore(cfg.ProposalTTL),
		cfg:         cfg,
	}
}

// Generate runs the engine and stores the outcome as a short-lived proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate schedule payload")
	}
	applied, err := s.applyOptions(req.Options)
	if err != nil {
		return nil, err
	}

	var input scheduler.Input
	if req.Catalog != nil {
		input = *req.Catalog
	} else {
		if s.catalog == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "catalog source unavailable")
		}
		if input, err = s.catalog.Snapshot(ctx); err != nil {
			return nil, err
		}
	}

	opts := scheduler.Options{
		MaxSessionsPerTeacherPerDay: applied.MaxSessionsPerTeacherPerDay,
		PreserveExisting:            applied.PreserveExisting,
		TieBreak:                    applied.TieBreak,
		IgnoreStudentConflicts:      applied.IgnoreStudentConflicts,
	}
	if applied.PreserveExisting {
		base, err := s.baseRun(ctx, applied.BaseRunID)
		if err != nil {
			return nil, err
		}
		stored, err := s.loadStored(ctx, base)
		if err != nil {
			return nil, err
		}
		applied.BaseRunID = base.ID
		opts.Existing = stored.result
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	result, err := s.engine.Generate(runCtx, input, opts)
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.ObserveGeneration("error", elapsed, 0, 0)
		if cfgErr, ok := scheduler.AsConfigurationError(err); ok {
			appErr := appErrors.Clone(appErrors.ErrSchedulerConfiguration, cfgErr.Error())
			return nil, appErrors.WithDetails(appErr, cfgErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrSchedulerTimeout.Code, appErrors.ErrSchedulerTimeout.Status, appErrors.ErrSchedulerTimeout.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedule")
	}
	s.metrics.ObserveGeneration(string(result.Status), elapsed, result.Stats.Placed, result.Stats.Unplaced)

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		Input:       input,
		Options:     applied,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)
	if err := s.cache.Set(ctx, proposalCachePrefix+proposal.ProposalID, proposal, s.cfg.ProposalTTL); err != nil {
		s.logger.Warn("failed to mirror schedule proposal", zap.String("proposal_id", proposal.ProposalID), zap.Error(err))
	}

	s.logger.Info("schedule proposal generated",
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("status", string(result.Status)),
		zap.Int("placed", result.Stats.Placed),
		zap.Int("unplaced", result.Stats.Unplaced),
		zap.Duration("elapsed", elapsed),
	)

	return &dto.GenerateScheduleResponse{
		ProposalID:           proposal.ProposalID,
		Status:               result.Status,
		ByRoom:               result.ByRoom,
		Unplaced:             result.Unplaced,
		UnplacedRequirements: result.UnplacedRequirements,
		Stats:                result.Stats,
		Options:              applied,
		ExpiresAt:            proposal.RequestedAt.Add(s.cfg.ProposalTTL),
	}, nil
}

// Save persists a proposal as a new versioned run, optionally publishing it.
func (s *ScheduleGeneratorService) Save(ctx context.Context, req dto.SaveScheduleRequest, actorID string) (*dto.SaveScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save schedule payload")
	}
	proposal, ok := s.lookupProposal(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.ErrProposalExpired
	}
	result := proposal.Result
	if result.Status != scheduler.StatusComplete && !req.AllowPartial {
		return nil, appErrors.WithDetails(appErrors.ErrPartialSchedule, map[string]interface{}{"unplaced": result.Unplaced})
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, marshalErr := json.Marshal(runMeta{
		ProposalID:           proposal.ProposalID,
		GeneratedAt:          proposal.RequestedAt,
		Options:              proposal.Options,
		Stats:                result.Stats,
		Unplaced:             result.Unplaced,
		UnplacedRequirements: result.UnplacedRequirements,
		Catalog:              proposal.Input,
	})
	if marshalErr != nil {
		return nil, appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}

	record := &models.ScheduleRun{
		Status:  models.ScheduleRunStatusDraft,
		Outcome: string(result.Status),
		Meta:    types.JSONText(metaBytes),
	}
	if actorID != "" {
		record.CreatedBy = &actorID
	}
	if req.Publish {
		now := time.Now().UTC()
		record.Status = models.ScheduleRunStatusPublished
		record.PublishedAt = &now
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.runs.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule run")
		return nil, err
	}

	flat := result.Assignments()
	rows := make([]models.ScheduleAssignment, 0, len(flat))
	for _, a := range flat {
		rows = append(rows, models.ScheduleAssignment{
			RunID:         record.ID,
			SectionID:     a.SectionID,
			CourseID:      a.CourseID,
			TeacherID:     a.TeacherID,
			RoomID:        a.RoomID,
			TimeslotID:    a.TimeslotID,
			SessionIndex:  a.SessionIndex,
			TotalSessions: a.TotalSessions,
		})
	}
	if err = s.assignments.InsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule assignments")
		return nil, err
	}

	if req.Publish {
		if _, err = s.runs.ArchivePublished(ctx, tx, record.ID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous schedule")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	s.forgetProposal(ctx, req.ProposalID)
	s.metrics.RecordRun(string(record.Status))
	s.logger.Info("schedule run saved",
		zap.String("run_id", record.ID),
		zap.Int("version", record.Version),
		zap.String("status", string(record.Status)),
		zap.Int("assignments", len(rows)),
	)
	return &dto.SaveScheduleResponse{RunID: record.ID, Version: record.Version, Status: record.Status}, nil
}

// List returns stored runs, newest first.
func (s *ScheduleGeneratorService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]models.ScheduleRun, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule run query")
	}
	filter := models.ScheduleRunFilter{Limit: query.Limit}
	if query.Status != "" {
		status := models.ScheduleRunStatus(query.Status)
		filter.Status = &status
	}
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	return nonNil(runs), nil
}

// GetRun returns a stored run with its reconstructed result and room timetable.
func (s *ScheduleGeneratorService) GetRun(ctx context.Context, runID string) (*dto.ScheduleRunDetail, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleRunDetail{
		Run:     *stored.run,
		Options: stored.meta.Options,
		Result:  stored.result,
		Rooms:   stored.lookup.RoomTimetable(stored.result),
	}, nil
}

// Delete removes a draft run.
func (s *ScheduleGeneratorService) Delete(ctx context.Context, runID string) error {
	run, err := s.findRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != models.ScheduleRunStatusDraft {
		return appErrors.Clone(appErrors.ErrRunPublished, "only draft schedule runs can be deleted")
	}
	if err := s.runs.Delete(ctx, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule run")
	}
	if err := s.cache.Invalidate(ctx, runCachePrefix+runID+":*"); err != nil {
		s.logger.Warn("failed to invalidate run cache", zap.String("run_id", runID), zap.Error(err))
	}
	s.metrics.RecordRun("DELETED")
	return nil
}

// Publish makes runID the published timetable and archives the previous one.
func (s *ScheduleGeneratorService) Publish(ctx context.Context, runID string) (*models.ScheduleRun, error) {
	run, err := s.findRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == models.ScheduleRunStatusPublished {
		return run, nil
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = s.runs.ArchivePublished(ctx, tx, runID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous schedule")
		return nil, err
	}
	if err = s.runs.UpdateStatus(ctx, tx, runID, models.ScheduleRunStatusPublished); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule run")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
		return nil, err
	}

	now := time.Now().UTC()
	run.Status = models.ScheduleRunStatusPublished
	run.PublishedAt = &now
	run.UpdatedAt = now
	s.metrics.RecordRun(string(run.Status))
	s.logger.Info("schedule run published", zap.String("run_id", runID), zap.Int("version", run.Version))
	return run, nil
}

// RoomTimetable returns the per-room view of a stored run.
func (s *ScheduleGeneratorService) RoomTimetable(ctx context.Context, runID string) ([]scheduler.RoomSchedule, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return stored.lookup.RoomTimetable(stored.result), nil
}

// TeacherSchedule returns every session a teacher gives in a stored run.
func (s *ScheduleGeneratorService) TeacherSchedule(ctx context.Context, runID, teacherID string) ([]scheduler.Session, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !stored.lookup.HasTeacher(teacherID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %s is not part of this run", teacherID))
	}
	return stored.lookup.TeacherSchedule(stored.result, teacherID), nil
}

// SectionSchedule returns the sessions of one section in a stored run.
func (s *ScheduleGeneratorService) SectionSchedule(ctx context.Context, runID, sectionID string) ([]scheduler.Session, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !stored.lookup.HasSection(sectionID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s is not part of this run", sectionID))
	}
	return stored.lookup.SectionSchedule(stored.result, sectionID), nil
}

// StudentSchedule returns the sessions of every section the student is enrolled in.
// Unknown students get an empty timetable.
func (s *ScheduleGeneratorService) StudentSchedule(ctx context.Context, runID, studentID string) ([]scheduler.Session, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return stored.lookup.StudentSchedule(stored.result, studentID), nil
}

// Unplaced returns the unplaced report of a stored run.
func (s *ScheduleGeneratorService) Unplaced(ctx context.Context, runID string) (*dto.UnplacedView, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	requirements := stored.result.UnplacedRequirements
	if requirements == nil {
		requirements = []scheduler.UnplacedRequirement{}
	}
	return &dto.UnplacedView{Sections: scheduler.UnplacedReport(stored.result), Requirements: requirements}, nil
}

// Utilization returns per-room booking percentages of a stored run.
func (s *ScheduleGeneratorService) Utilization(ctx context.Context, runID string) ([]scheduler.RoomUtilization, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return stored.lookup.Utilization(stored.result), nil
}

// Verify re-checks a stored run against every hard constraint.
func (s *ScheduleGeneratorService) Verify(ctx context.Context, runID string) (*dto.VerificationView, error) {
	stored, err := s.load(ctx, runID)
	if err != nil {
		return nil, err
	}
	violations := stored.lookup.Verify(stored.result, stored.meta.Options.MaxSessionsPerTeacherPerDay)
	return &dto.VerificationView{Valid: len(violations) == 0, Violations: violations}, nil
}

func (s *ScheduleGeneratorService) applyOptions(opts dto.GenerateOptions) (dto.AppliedOptions, error) {
	tieBreak := s.cfg.TieBreak
	if opts.TieBreak != "" {
		parsed, err := scheduler.ParseTieBreak(opts.TieBreak)
		if err != nil {
			return dto.AppliedOptions{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		tieBreak = parsed
	}
	maxPerDay := opts.MaxSessionsPerTeacherPerDay
	if maxPerDay == 0 {
		maxPerDay = s.cfg.MaxSessionsPerDay
	}
	if maxPerDay == 0 {
		maxPerDay = scheduler.DefaultMaxSessionsPerTeacherPerDay
	}
	ignore := s.cfg.IgnoreStudentConflicts
	if opts.IgnoreStudentConflicts != nil {
		ignore = *opts.IgnoreStudentConflicts
	}
	if opts.BaseRunID != "" && !opts.PreserveExisting {
		return dto.AppliedOptions{}, appErrors.Clone(appErrors.ErrValidation, "baseRunId requires preserveExisting")
	}
	return dto.AppliedOptions{
		MaxSessionsPerTeacherPerDay: maxPerDay,
		PreserveExisting:            opts.PreserveExisting,
		BaseRunID:                   opts.BaseRunID,
		TieBreak:                    tieBreak,
		IgnoreStudentConflicts:      ignore,
	}, nil
}

// baseRun resolves the run to preserve: the requested one, else the published one.
func (s *ScheduleGeneratorService) baseRun(ctx context.Context, runID string) (*models.ScheduleRun, error) {
	if runID != "" {
		return s.findRun(ctx, runID)
	}
	run, err := s.runs.FindPublished(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "preserveExisting needs a baseRunId or a published schedule")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published schedule")
	}
	return run, nil
}

func (s *ScheduleGeneratorService) findRun(ctx context.Context, runID string) (*models.ScheduleRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	return run, nil
}

func (s *ScheduleGeneratorService) load(ctx context.Context, runID string) (*storedRun, error) {
	run, err := s.findRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.loadStored(ctx, run)
}

func (s *ScheduleGeneratorService) loadStored(ctx context.Context, run *models.ScheduleRun) (*storedRun, error) {
	var meta runMeta
	if len(run.Meta) > 0 {
		if err := json.Unmarshal(run.Meta, &meta); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode schedule metadata")
		}
	}
	rows, err := s.runAssignments(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	placed := make([]scheduler.Assignment, 0, len(rows))
	for _, row := range rows {
		placed = append(placed, scheduler.Assignment{
			SectionID:     row.SectionID,
			CourseID:      row.CourseID,
			TeacherID:     row.TeacherID,
			RoomID:        row.RoomID,
			TimeslotID:    row.TimeslotID,
			SessionIndex:  row.SessionIndex,
			TotalSessions: row.TotalSessions,
		})
	}
	result := scheduler.Rebuild(meta.Catalog, placed, meta.UnplacedRequirements, meta.Stats)
	return &storedRun{run: run, meta: meta, result: result, lookup: scheduler.NewLookup(meta.Catalog)}, nil
}

// runAssignments reads through the cache; stored runs never change their placements.
func (s *ScheduleGeneratorService) runAssignments(ctx context.Context, runID string) ([]models.ScheduleAssignment, error) {
	key := runAssignmentsKey(runID)
	var rows []models.ScheduleAssignment
	if hit, _ := s.cache.Get(ctx, key, &rows); hit {
		return rows, nil
	}
	rows, err := s.assignments.ListByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}
	_ = s.cache.Set(ctx, key, rows, 0)
	return rows, nil
}

func (s *ScheduleGeneratorService) lookupProposal(ctx context.Context, id string) (scheduleProposal, bool) {
	if proposal, ok := s.store.Get(id); ok {
		return proposal, true
	}
	var cached scheduleProposal
	hit, err := s.cache.Get(ctx, proposalCachePrefix+id, &cached)
	if err != nil || !hit || cached.Result == nil {
		return scheduleProposal{}, false
	}
	if time.Since(cached.RequestedAt) > s.cfg.ProposalTTL {
		return scheduleProposal{}, false
	}
	s.store.Save(cached)
	return cached, true
}

func (s *ScheduleGeneratorService) forgetProposal(ctx context.Context, id string) {
	s.store.Delete(id)
	if err := s.cache.Delete(ctx, proposalCachePrefix+id); err != nil {
		s.logger.Warn("failed to drop cached proposal", zap.String("proposal_id", id), zap.Error(err))
	}
}

// runMeta is the JSON stored in schedule_runs.meta. Catalog is the exact input
// the run was generated from so views stay stable after the catalog changes.
type runMeta struct {
	ProposalID           string                          `json:"proposalId"`
	GeneratedAt          time.Time                       `json:"generatedAt"`
	Options              dto.AppliedOptions              `json:"options"`
	Stats                scheduler.Stats                 `json:"stats"`
	Unplaced             []scheduler.UnplacedSection     `json:"unplaced"`
	UnplacedRequirements []scheduler.UnplacedRequirement `json:"unplacedRequirements"`
	Catalog              scheduler.Input                 `json:"catalog"`
}

type storedRun struct {
	run    *models.ScheduleRun
	meta   runMeta
	result *scheduler.Result
	lookup *scheduler.Lookup
}

type scheduleProposal struct {
	ProposalID  string             `json:"proposalId"`
	Input       scheduler.Input    `json:"input"`
	Options     dto.AppliedOptions `json:"options"`
	Result      *scheduler.Result  `json:"result"`
	RequestedAt time.Time          `json:"requestedAt"`
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]scheduleProposal),
	}
}

func (s *proposalStore) Save(proposal scheduleProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
	s.evictExpiredLocked()
}

func (s *proposalStore) Get(id string) (scheduleProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduleProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *proposalStore) evictExpiredLocked() {
	for id, proposal := range s.items {
		if time.Since(proposal.RequestedAt) > s.ttl {
			delete(s.items, id)
		}
	}
}
