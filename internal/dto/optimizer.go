package dto

import (
	"time"

	"github.com/uvems/uvems-api/internal/models"
)

// FitnessWeights tunes the soft scoring terms of the optimizer. Zero
// values fall back to server defaults.
type FitnessWeights struct {
	Base                    float64 `json:"base" validate:"omitempty,min=0"`
	VenuePreferenceMatch    float64 `json:"venuePreferenceMatch" validate:"omitempty,min=0"`
	DatePreferenceMatch     float64 `json:"datePreferenceMatch" validate:"omitempty,min=0"`
	TimeSlotPreferenceMatch float64 `json:"timeSlotPreferenceMatch" validate:"omitempty,min=0"`
	HecticWeekBonus         float64 `json:"hecticWeekBonus" validate:"omitempty,min=0"`
	CapacityPenaltyFactor   float64 `json:"capacityPenaltyFactor" validate:"omitempty,min=0"`
	HardViolationPenalty    float64 `json:"hardViolationPenalty" validate:"omitempty,min=0"`
}

// OptimizeWeekRequest triggers an optimization run for the week starting
// at the given Monday. GA parameters are optional overrides.
type OptimizeWeekRequest struct {
	WeekStart      string          `json:"weekStart" validate:"required,datetime=2006-01-02"`
	Async          bool            `json:"async"`
	Reuse          bool            `json:"reuse"`
	Weights        *FitnessWeights `json:"weights" validate:"omitempty"`
	PopulationSize *int            `json:"populationSize" validate:"omitempty,gt=10"`
	MaxGenerations *int            `json:"maxGenerations" validate:"omitempty,gt=0"`
	MutationRate   *float64        `json:"mutationRate" validate:"omitempty,gte=0,lte=1"`
	CrossoverRate  *float64        `json:"crossoverRate" validate:"omitempty,gte=0,lte=1"`
	TournamentSize *int            `json:"tournamentSize" validate:"omitempty,gt=1"`
}

// ProposedEntry is one venue booking suggested by the optimizer.
type ProposedEntry struct {
	EventID   string    `json:"eventId"`
	EventName string    `json:"eventName,omitempty"`
	VenueID   string    `json:"venueId"`
	VenueName string    `json:"venueName,omitempty"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// UnscheduledFinding explains why an event could not be placed.
type UnscheduledFinding struct {
	EventID   string   `json:"eventId"`
	EventName string   `json:"eventName,omitempty"`
	Reasons   []string `json:"reasons"`
}

// RunReport summarises an optimization run for clients and exports.
type RunReport struct {
	WeekStart        time.Time            `json:"weekStart"`
	WeekEnd          time.Time            `json:"weekEnd"`
	EventCount       int                  `json:"eventCount"`
	PopulationSize   int                  `json:"populationSize"`
	MaxGenerations   int                  `json:"maxGenerations"`
	MutationRate     float64              `json:"mutationRate"`
	CrossoverRate    float64              `json:"crossoverRate"`
	TournamentSize   int                  `json:"tournamentSize"`
	BestFitness      float64              `json:"bestFitness"`
	Violations       int                  `json:"violations"`
	HecticWeek       bool                 `json:"hecticWeek"`
	BlockedIntervals []string             `json:"blockedIntervals"`
	VenueBlockages   []string             `json:"venueBlockages"`
	Entries          []ProposedEntry      `json:"entries"`
	Unscheduled      []UnscheduledFinding `json:"unscheduled"`
	Summary          string               `json:"summary"`
}

// OptimizationProposalResponse holds a pending proposal awaiting acceptance.
type OptimizationProposalResponse struct {
	ProposalID  string          `json:"proposalId"`
	RunID       string          `json:"runId"`
	Entries     []ProposedEntry `json:"entries"`
	Unscheduled []string        `json:"unscheduledEventIds"`
	Report      RunReport       `json:"report"`
	ExpiresAt   time.Time       `json:"expiresAt"`
}

// OptimizationRunQueuedResponse acknowledges an async run.
type OptimizationRunQueuedResponse struct {
	RunID  string                       `json:"runId"`
	Status models.OptimizationRunStatus `json:"status"`
}

// AcceptProposalRequest commits a previously returned proposal.
type AcceptProposalRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// AcceptProposalResponse reports the persistence outcome.
type AcceptProposalResponse struct {
	ScheduledCount    int      `json:"scheduledCount"`
	ApprovedEvents    []string `json:"approvedEventIds"`
	NeedsAlternatives []string `json:"needsAlternativesEventIds"`
}

// OptimizationRunQuery filters run listings.
type OptimizationRunQuery struct {
	Status   string `form:"status" json:"status"`
	Page     int    `form:"page" json:"page"`
	PageSize int    `form:"pageSize" json:"pageSize"`
}
