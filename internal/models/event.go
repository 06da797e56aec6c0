package models

import "time"

// EventStatus tracks an event request through its approval lifecycle.
type EventStatus string

const (
	EventStatusPending           EventStatus = "PENDING"
	EventStatusApproved          EventStatus = "APPROVED"
	EventStatusRejected          EventStatus = "REJECTED"
	EventStatusNeedsAlternatives EventStatus = "NEEDS_ALTERNATIVES"
)

// Event represents a persisted event request row. Requested times are
// stored in UTC; the requested venue is a soft target, not a reservation.
type Event struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	OrgID        string      `db:"org_id" json:"org_id"`
	Status       EventStatus `db:"status" json:"status"`
	EstAttendees int         `db:"est_attendees" json:"est_attendees"`
	ReqVenueID   *string     `db:"req_venue_id" json:"req_venue_id,omitempty"`
	ReqStart     *time.Time  `db:"req_start" json:"req_start,omitempty"`
	ReqEnd       *time.Time  `db:"req_end" json:"req_end,omitempty"`
	NeedsFunding bool        `db:"needs_funding" json:"needs_funding"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// EventFilter scopes event listing queries.
type EventFilter struct {
	Status    *EventStatus
	OrgID     string
	WeekStart *time.Time
	WeekEnd   *time.Time
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
