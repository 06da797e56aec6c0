// Package optimizer implements the weekly venue scheduling search. It
// compiles academic calendar constraints into absolute blocked intervals,
// then runs a genetic algorithm over candidate week schedules. The package
// performs no I/O; callers assemble a RunContext and persist the result.
package optimizer

import "time"

// Slot assigns a venue and an absolute UTC time window to an event.
type Slot struct {
	VenueID string
	Start   time.Time
	End     time.Time
}

// Chromosome maps every pending event id to its assigned slot, or nil when
// the event is left unscheduled. The key set always equals the run's
// pending event id set.
type Chromosome map[string]*Slot

// Clone returns an independent copy. Slot values are never mutated in
// place, so sharing the pointed-to slots would be safe, but copies keep
// elitism carry-over immune to future operator changes.
func (c Chromosome) Clone() Chromosome {
	out := make(Chromosome, len(c))
	for id, slot := range c {
		if slot == nil {
			out[id] = nil
			continue
		}
		cp := *slot
		out[id] = &cp
	}
	return out
}

// FitnessResult scores one chromosome. Violations count failed hard
// constraints; Score aggregates soft preferences minus the violation
// penalty.
type FitnessResult struct {
	Score      float64
	Violations int
}

// Better reports whether f is a strict improvement over other. Fewer
// violations always wins; ties break on higher score.
func (f FitnessResult) Better(other FitnessResult) bool {
	if f.Violations != other.Violations {
		return f.Violations < other.Violations
	}
	return f.Score > other.Score
}

// ScheduleEntry is one confirmed booking produced from a winning
// chromosome.
type ScheduleEntry struct {
	EventID   string
	VenueID   string
	OrgID     string
	StartTime time.Time
	EndTime   time.Time
}

// Overlap reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
