package models

import (
	"encoding/json"
	"time"
)

// OptimizationRunStatus tracks an asynchronous optimization run.
type OptimizationRunStatus string

const (
	OptimizationRunQueued    OptimizationRunStatus = "QUEUED"
	OptimizationRunRunning   OptimizationRunStatus = "RUNNING"
	OptimizationRunCompleted OptimizationRunStatus = "COMPLETED"
	OptimizationRunFailed    OptimizationRunStatus = "FAILED"
)

// OptimizationRun records one optimizer invocation and its outcome.
// Report holds the serialized run report for later retrieval and export.
type OptimizationRun struct {
	ID             string                `db:"id" json:"id"`
	WeekStart      time.Time             `db:"week_start" json:"week_start"`
	WeekEnd        time.Time             `db:"week_end" json:"week_end"`
	Status         OptimizationRunStatus `db:"status" json:"status"`
	RequestedBy    string                `db:"requested_by" json:"requested_by"`
	EventCount     int                   `db:"event_count" json:"event_count"`
	ScheduledCount int                   `db:"scheduled_count" json:"scheduled_count"`
	BestFitness    float64               `db:"best_fitness" json:"best_fitness"`
	Violations     int                   `db:"violations" json:"violations"`
	Report         json.RawMessage       `db:"report" json:"report,omitempty"`
	ErrorMessage   *string               `db:"error_message" json:"error_message,omitempty"`
	StartedAt      *time.Time            `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time            `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// OptimizationRunFilter scopes run listing queries.
type OptimizationRunFilter struct {
	Status   *OptimizationRunStatus
	Page     int
	PageSize int
}
