package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uvems/uvems-api/internal/models"
)

const eventColumns = "id, name, org_id, status, est_attendees, req_venue_id, req_start, req_end, needs_funding, created_at, updated_at"

// EventRepository provides persistence for event requests.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events with optional filtering and pagination.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := "FROM events WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.OrgID != "" {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", len(args)+1))
		args = append(args, filter.OrgID)
	}
	if filter.WeekStart != nil {
		conditions = append(conditions, fmt.Sprintf("req_start >= $%d", len(args)+1))
		args = append(args, *filter.WeekStart)
	}
	if filter.WeekEnd != nil {
		conditions = append(conditions, fmt.Sprintf("req_start < $%d", len(args)+1))
		args = append(args, *filter.WeekEnd)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY req_start ASC LIMIT %d OFFSET %d", eventColumns, base, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var ev models.Event
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListPendingInWindow returns pending events whose requested start falls
// inside [start, end).
func (r *EventRepository) ListPendingInWindow(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE status = $1 AND req_start >= $2 AND req_start < $3 ORDER BY req_start ASC", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, models.EventStatusPending, start, end); err != nil {
		return nil, fmt.Errorf("list pending events in window: %w", err)
	}
	return events, nil
}

// Create stores a new event request.
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Status == "" {
		ev.Status = models.EventStatusPending
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	const query = `INSERT INTO events (id, name, org_id, status, est_attendees, req_venue_id, req_start, req_end, needs_funding, created_at, updated_at) VALUES (:id, :name, :org_id, :status, :est_attendees, :req_venue_id, :req_start, :req_end, :needs_funding, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// UpdateStatusWhere transitions every listed event currently in the from
// status to the to status, returning how many rows changed. Runs on the
// provided executor so callers can batch it into a transaction.
func (r *EventRepository) UpdateStatusWhere(ctx context.Context, exec sqlx.ExtContext, ids []string, from, to models.EventStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE events SET status = ?, updated_at = ? WHERE id IN (?) AND status = ?", to, time.Now().UTC(), ids, from)
	if err != nil {
		return 0, fmt.Errorf("build event status update: %w", err)
	}
	query = exec.Rebind(query)
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update event statuses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read affected event rows: %w", err)
	}
	return affected, nil
}
