package models

import "time"

// Venue represents a bookable venue row.
type Venue struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Building  string    `db:"building" json:"building"`
	VenueType string    `db:"venue_type" json:"venue_type"`
	Occupancy int       `db:"occupancy" json:"occupancy"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// VenueFilter scopes venue listing queries.
type VenueFilter struct {
	VenueType string
	Search    string
	Page      int
	PageSize  int
}
