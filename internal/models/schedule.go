package models

import "time"

// Schedule is a confirmed venue booking the optimizer must plan around.
// Times are stored in UTC.
type Schedule struct {
	ID          string    `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"`
	VenueID     string    `db:"venue_id" json:"venue_id"`
	OrgID       string    `db:"org_id" json:"org_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	IsOptimized bool      `db:"is_optimized" json:"is_optimized"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ScheduleFilter scopes schedule listing queries.
type ScheduleFilter struct {
	VenueID   string
	EventID   string
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int
	PageSize  int
}
