package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uvems/uvems-api/internal/models"
)

// PreferenceRepository provides read access to event scheduling preferences.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository creates a new preference repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ListByEventIDs returns the preferences for the given events ordered by
// creation time so the first row per event is the primary preference.
func (r *PreferenceRepository) ListByEventIDs(ctx context.Context, eventIDs []string) ([]models.Preference, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT id, event_id, pref_venue_id, pref_date, pref_slot_start, pref_slot_end, created_at FROM preferences WHERE event_id IN (?) ORDER BY created_at ASC", eventIDs)
	if err != nil {
		return nil, fmt.Errorf("build preference query: %w", err)
	}
	query = r.db.Rebind(query)
	var prefs []models.Preference
	if err := r.db.SelectContext(ctx, &prefs, query, args...); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
