package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

const scheduleRunColumns = `id, version, status, outcome, meta, created_by, published_at, created_at, updated_at`

// ScheduleRunRepository persists versioned timetable runs.
type ScheduleRunRepository struct {
	db *sqlx.DB
}

// NewScheduleRunRepository constructs repository.
func NewScheduleRunRepository(db *sqlx.DB) *ScheduleRunRepository {
	return &ScheduleRunRepository{db: db}
}

func (r *ScheduleRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run with the next global version number.
func (r *ScheduleRunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error {
	if run == nil {
		return fmt.Errorf("schedule run payload is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.ScheduleRunStatusDraft
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_runs`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery); err != nil {
		return fmt.Errorf("compute next schedule run version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedule_runs (id, version, status, outcome, meta, created_by, published_at, created_at, updated_at)
VALUES (:id, :version, :status, :outcome, :meta, :created_by, :published_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		return fmt.Errorf("insert schedule run: %w", err)
	}
	return nil
}

// List returns runs newest version first.
func (r *ScheduleRunRepository) List(ctx context.Context, filter models.ScheduleRunFilter) ([]models.ScheduleRun, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs`
	args := []interface{}{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}
	query += fmt.Sprintf(` ORDER BY version DESC LIMIT %d`, limit)

	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule runs: %w", err)
	}
	return runs, nil
}

// FindByID loads a run by its identifier.
func (r *ScheduleRunRepository) FindByID(ctx context.Context, id string) (*models.ScheduleRun, error) {
	const query = `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE id = $1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule run: %w", err)
	}
	return &run, nil
}

// FindPublished returns the currently published run, or sql.ErrNoRows.
func (r *ScheduleRunRepository) FindPublished(ctx context.Context) (*models.ScheduleRun, error) {
	const query = `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE status = 'PUBLISHED' ORDER BY version DESC LIMIT 1`
	var run models.ScheduleRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find published schedule run: %w", err)
	}
	return &run, nil
}

// Delete removes a stored run. Assignments cascade.
func (r *ScheduleRunRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedule_runs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a run to status, stamping published_at when publishing.
func (r *ScheduleRunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleRunStatus) error {
	target := r.exec(exec)
	now := time.Now().UTC()

	var (
		query string
		args  []interface{}
	)
	if status == models.ScheduleRunStatusPublished {
		query = `UPDATE schedule_runs SET status = $1, published_at = $2, updated_at = $2 WHERE id = $3`
		args = []interface{}{status, now, id}
	} else {
		query = `UPDATE schedule_runs SET status = $1, updated_at = $2 WHERE id = $3`
		args = []interface{}{status, now, id}
	}
	result, err := target.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule run status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchivePublished archives every published run except keepID and returns how many changed.
func (r *ScheduleRunRepository) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, keepID string) (int64, error) {
	const query = `UPDATE schedule_runs SET status = 'ARCHIVED', updated_at = $1 WHERE status = 'PUBLISHED' AND id <> $2`
	result, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), keepID)
	if err != nil {
		return 0, fmt.Errorf("archive published schedule runs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archived schedule runs rows affected: %w", err)
	}
	return affected, nil
}
