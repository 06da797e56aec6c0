package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uvems/uvems-api/internal/models"
)

const runColumns = "id, week_start, week_end, status, requested_by, event_count, scheduled_count, best_fitness, violations, report, error_message, started_at, finished_at, created_at"

// OptimizationRunRepository provides persistence for optimization run records.
type OptimizationRunRepository struct {
	db *sqlx.DB
}

// NewOptimizationRunRepository creates a new optimization run repository.
func NewOptimizationRunRepository(db *sqlx.DB) *OptimizationRunRepository {
	return &OptimizationRunRepository{db: db}
}

// Create stores a new run record.
func (r *OptimizationRunRepository) Create(ctx context.Context, run *models.OptimizationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.OptimizationRunQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO optimization_runs (id, week_start, week_end, status, requested_by, event_count, scheduled_count, best_fitness, violations, report, error_message, started_at, finished_at, created_at) VALUES (:id, :week_start, :week_end, :status, :requested_by, :event_count, :scheduled_count, :best_fitness, :violations, :report, :error_message, :started_at, :finished_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create optimization run: %w", err)
	}
	return nil
}

// MarkRunning transitions a queued run to running and stamps the start time.
func (r *OptimizationRunRepository) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	const query = "UPDATE optimization_runs SET status = $1, started_at = $2 WHERE id = $3 AND status = $4"
	res, err := r.db.ExecContext(ctx, query, models.OptimizationRunRunning, startedAt, id, models.OptimizationRunQueued)
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected run rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s is not queued", id)
	}
	return nil
}

// Complete records a finished run with its outcome.
func (r *OptimizationRunRepository) Complete(ctx context.Context, run *models.OptimizationRun) error {
	const query = `UPDATE optimization_runs SET status = :status, event_count = :event_count, scheduled_count = :scheduled_count, best_fitness = :best_fitness, violations = :violations, report = :report, error_message = :error_message, finished_at = :finished_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("complete optimization run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected run rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a run by id.
func (r *OptimizationRunRepository) FindByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	query := fmt.Sprintf("SELECT %s FROM optimization_runs WHERE id = $1", runColumns)
	var run models.OptimizationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns runs with optional filtering and pagination, newest first.
func (r *OptimizationRunRepository) List(ctx context.Context, filter models.OptimizationRunFilter) ([]models.OptimizationRun, int, error) {
	base := "FROM optimization_runs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", runColumns, base, size, offset)
	var runs []models.OptimizationRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list optimization runs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count optimization runs: %w", err)
	}
	return runs, total, nil
}
