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

const venueColumns = "id, name, building, venue_type, occupancy, code, created_at, updated_at"

// VenueRepository provides persistence for venues.
type VenueRepository struct {
	db *sqlx.DB
}

// NewVenueRepository creates a new venue repository.
func NewVenueRepository(db *sqlx.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// List returns venues with optional filtering and pagination.
func (r *VenueRepository) List(ctx context.Context, filter models.VenueFilter) ([]models.Venue, int, error) {
	base := "FROM venues WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.VenueType != "" {
		conditions = append(conditions, fmt.Sprintf("venue_type = $%d", len(args)+1))
		args = append(args, filter.VenueType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR building ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", venueColumns, base, size, offset)
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list venues: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count venues: %w", err)
	}
	return venues, total, nil
}

// ListAll returns every venue ordered by name.
func (r *VenueRepository) ListAll(ctx context.Context) ([]models.Venue, error) {
	query := fmt.Sprintf("SELECT %s FROM venues ORDER BY name ASC", venueColumns)
	var venues []models.Venue
	if err := r.db.SelectContext(ctx, &venues, query); err != nil {
		return nil, fmt.Errorf("list all venues: %w", err)
	}
	return venues, nil
}

// FindByID loads a venue by id.
func (r *VenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	query := fmt.Sprintf("SELECT %s FROM venues WHERE id = $1", venueColumns)
	var v models.Venue
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// Create stores a new venue.
func (r *VenueRepository) Create(ctx context.Context, v *models.Venue) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	const query = `INSERT INTO venues (id, name, building, venue_type, occupancy, code, created_at, updated_at) VALUES (:id, :name, :building, :venue_type, :occupancy, :code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}
