package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type exportRunFinder interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
}

type timetableSource interface {
	RoomTimetable(ctx context.Context, runID string) ([]scheduler.RoomSchedule, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
	Depth() int
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ExportDownload is a resolved, opened export file.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService manages the lifecycle of timetable export jobs.
type ExportService struct {
	repo      exportJobStore
	runs      exportRunFinder
	queue     jobDispatcher
	storage   fileStorage
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	repo exportJobStore,
	runs exportRunFinder,
	queue jobDispatcher,
	store fileStorage,
	signer *storage.SignedURLSigner,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		repo:      repo,
		runs:      runs,
		queue:     queue,
		storage:   store,
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Request persists an export job for runID and hands it to the worker queue.
func (s *ExportService) Request(ctx context.Context, runID string, req dto.CreateExportRequest, actorID string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if _, err := s.runs.FindByID(ctx, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}

	job := &models.ExportJob{
		RunID:     runID,
		Params:    models.ExportJobParams{Format: models.ExportFormat(req.Format), RoomIDs: dedupe(req.RoomIDs)},
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Params.Format)}); err != nil {
		failed := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		s.metrics.RecordExport(string(job.Params.Format), string(failed))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.SetExportQueueDepth(s.queue.Depth())
	s.logger.Info("export requested",
		zap.String("job_id", job.ID),
		zap.String("run_id", runID),
		zap.String("format", string(job.Params.Format)),
	)
	return job, nil
}

// Status reports job progress. Finished jobs carry a freshly signed download link.
// Students and teachers only see their own jobs.
func (s *ExportService) Status(ctx context.Context, id, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && role != models.RoleSuperAdmin && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ExportStatusResponse{Job: *job}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		url := fmt.Sprintf("%s/exports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// ResolveDownload validates a download token and opens the stored file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.loadJob(ctx, parsed.ExportID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusFinished || job.ResultPath == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if *job.ResultPath != parsed.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(parsed.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	contentType := "text/csv"
	if job.Params.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(parsed.Path),
		ContentType: contentType,
		ExpiresAt:   parsed.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays jobs left queued or processing by a previous process.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Params.Format)}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending export", "job_id", job.ID, "error", err)
		}
	}
	if len(pending) > 0 {
		s.logger.Info("requeued pending exports", zap.Int("count", len(pending)))
	}
	s.metrics.SetExportQueueDepth(s.queue.Depth())
}

// StartCleanup purges stored exports older than ResultTTL until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Cleanup removes expired files from storage.
func (s *ExportService) Cleanup() []string {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return nil
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted
}

func (s *ExportService) loadJob(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

// ExportWorker renders queued export jobs.
type ExportWorker struct {
	repo      exportJobStore
	timetable timetableSource
	storage   fileStorage
	renderers map[models.ExportFormat]documentRenderer
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewExportWorker constructs a worker with the CSV and PDF renderers.
func NewExportWorker(repo exportJobStore, timetable timetableSource, store fileStorage, metrics *MetricsService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{
		repo:      repo,
		timetable: timetable,
		storage:   store,
		renderers: map[models.ExportFormat]documentRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Handle processes one queue job. Returned errors make the queue retry.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", job.ID, err)
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}
	processing := models.ExportStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing}); err != nil {
		return err
	}

	relPath, err := w.render(ctx, record)
	if err != nil {
		msg := err.Error()
		queued := models.ExportStatusQueued
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &queued,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to mark export queued", "job_id", job.ID, "error", updateErr)
		}
		return err
	}

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	empty := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		ResultPath:   &relPath,
		ErrorMessage: &empty,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark export finished", "job_id", job.ID, "error", err)
		return err
	}
	w.metrics.RecordExport(string(record.Params.Format), string(finished))
	w.logger.Info("export finished", zap.String("job_id", job.ID), zap.String("path", relPath))
	return nil
}

// MarkDead fails a job that exhausted its retries. It is the queue's dead-letter hook.
func (w *ExportWorker) MarkDead(job jobs.Job, cause error) {
	failed := models.ExportStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := w.repo.Update(context.Background(), job.ID, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark export failed", "job_id", job.ID, "error", err)
	}
	w.metrics.RecordExport(job.Type, string(failed))
}

func (w *ExportWorker) render(ctx context.Context, job *models.ExportJob) (string, error) {
	renderer, ok := w.renderers[job.Params.Format]
	if !ok {
		return "", fmt.Errorf("unsupported export format %q", job.Params.Format)
	}
	rooms, err := w.timetable.RoomTimetable(ctx, job.RunID)
	if err != nil {
		return "", err
	}
	payload, err := renderer.Render(TimetableDocument(job.RunID, rooms, job.Params.RoomIDs))
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("runs/%s/timetable_%s_%s.%s",
		sanitizeFilename(job.RunID),
		time.Now().UTC().Format("20060102_150405"),
		sanitizeFilename(job.ID),
		renderer.Extension(),
	)
	return w.storage.Save(name, payload)
}

// TimetableDocument lays out one table per room. roomIDs narrows the rooms when non-empty.
func TimetableDocument(runID string, rooms []scheduler.RoomSchedule, roomIDs []string) export.Document {
	doc := export.Document{
		Title:   "Timetable " + runID,
		Headers: []string{"Room", "Day", "Start", "End", "Course", "Section", "Teacher", "Session", "Enrolled"},
	}
	for _, room := range rooms {
		if len(roomIDs) > 0 && !contains(roomIDs, room.RoomID) {
			continue
		}
		table := export.Table{
			Title: fmt.Sprintf("Room %s (capacity %d)", room.RoomID, room.Capacity),
			Rows:  make([][]string, 0, len(room.Sessions)),
		}
		for _, session := range room.Sessions {
			course := session.CourseID
			if session.CourseName != "" {
				course = session.CourseID + " " + session.CourseName
			}
			teacher := session.TeacherID
			if session.TeacherName != "" {
				teacher = session.TeacherName
			}
			table.Rows = append(table.Rows, []string{
				room.RoomID,
				session.Day.String(),
				session.Start.String(),
				session.End.String(),
				course,
				session.SectionID,
				teacher,
				fmt.Sprintf("%d/%d", session.SessionIndex, session.TotalSessions),
				strconv.Itoa(session.Enrolled),
			})
		}
		doc.Tables = append(doc.Tables, table)
	}
	return doc
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
