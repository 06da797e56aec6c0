package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uvems/uvems-api/internal/models"
)

// EquipmentRepository provides read access to the equipment inventory and
// per-event equipment requests.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository creates a new equipment repository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// ListAll returns every inventory item. Quantity on hand for a name is the
// number of rows carrying that name.
func (r *EquipmentRepository) ListAll(ctx context.Context) ([]models.Equipment, error) {
	const query = "SELECT id, name, created_at, updated_at FROM equipment ORDER BY name ASC, id ASC"
	var items []models.Equipment
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	return items, nil
}

// ListRequestsByEventIDs returns the equipment requests attached to the given
// events, keyed nowhere; callers group by EventID.
func (r *EquipmentRepository) ListRequestsByEventIDs(ctx context.Context, eventIDs []string) ([]models.EventEquipment, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, event_id, equipment_id, quantity FROM event_equipment WHERE event_id IN (?)", eventIDs)
	if err != nil {
		return nil, fmt.Errorf("build equipment request query: %w", err)
	}
	query = r.db.Rebind(query)
	var requests []models.EventEquipment
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list equipment requests: %w", err)
	}
	return requests, nil
}
