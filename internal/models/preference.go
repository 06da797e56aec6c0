package models

import "time"

// Preference is an alternative (venue, date, time window) an organization
// is willing to accept for an event. All fields besides the event link are
// optional; preferences are soft-match fallbacks only.
type Preference struct {
	ID            string     `db:"id" json:"id"`
	EventID       string     `db:"event_id" json:"event_id"`
	PrefVenueID   *string    `db:"pref_venue_id" json:"pref_venue_id,omitempty"`
	PrefDate      *time.Time `db:"pref_date" json:"pref_date,omitempty"`
	PrefSlotStart *time.Time `db:"pref_slot_start" json:"pref_slot_start,omitempty"`
	PrefSlotEnd   *time.Time `db:"pref_slot_end" json:"pref_slot_end,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
