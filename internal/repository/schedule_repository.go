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

const scheduleColumns = "id, event_id, venue_id, org_id, start_time, end_time, is_optimized, created_at"

// ScheduleRepository provides persistence for confirmed schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedule entries with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.VenueID != "" {
		conditions = append(conditions, fmt.Sprintf("venue_id = $%d", len(args)+1))
		args = append(args, filter.VenueID)
	}
	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.StartFrom != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, *filter.StartFrom)
	}
	if filter.StartTo != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.StartTo)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// ListOverlapping returns every confirmed entry intersecting [start, end).
func (r *ScheduleRepository) ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE start_time < $2 AND end_time > $1 ORDER BY start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, start, end); err != nil {
		return nil, fmt.Errorf("list overlapping schedules: %w", err)
	}
	return schedules, nil
}

// Create stores a single schedule entry.
func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedules (id, event_id, venue_id, org_id, start_time, end_time, is_optimized, created_at) VALUES (:id, :event_id, :venue_id, :org_id, :start_time, :end_time, :is_optimized, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts the given entries inside the caller's transaction.
// IDs and creation timestamps are filled in when missing.
func (r *ScheduleRepository) BulkCreateWithTx(ctx context.Context, tx sqlx.ExtContext, schedules []*models.Schedule) error {
	if len(schedules) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, s := range schedules {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}
	const query = `INSERT INTO schedules (id, event_id, venue_id, org_id, start_time, end_time, is_optimized, created_at) VALUES (:id, :event_id, :venue_id, :org_id, :start_time, :end_time, :is_optimized, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, schedules); err != nil {
		return fmt.Errorf("bulk create schedules: %w", err)
	}
	return nil
}

// Delete removes a schedule entry by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected schedule rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
