package optimizer

import (
	"math/rand"
	"time"

	"github.com/uvems/uvems-api/internal/models"
)

const (
	// placementChance is the probability an event gets any assignment at
	// all in a fresh chromosome.
	placementChance = 0.9
	// requestedWindowChance tries the originally requested window before
	// falling back to random generation.
	requestedWindowChance = 0.5
	// slotAttempts bounds random slot generation per event.
	slotAttempts = 20

	earliestStartHour = 6
	latestStartHour   = 21
)

var startMinutes = []int{0, 15, 30, 45}

// NewPopulation builds size fresh chromosomes. Placement attempts only
// respect absolute time-window legality; conflicts between events are the
// evaluator's concern.
func NewPopulation(rng *rand.Rand, rc *RunContext, size int) []Chromosome {
	population := make([]Chromosome, 0, size)
	if len(rc.VenueList) == 0 || len(rc.Events) == 0 {
		for i := 0; i < size; i++ {
			population = append(population, Chromosome{})
		}
		return population
	}

	for i := 0; i < size; i++ {
		chrom := make(Chromosome, len(rc.Events))
		for idx := range rc.Events {
			ev := &rc.Events[idx]
			if rng.Float64() >= placementChance {
				chrom[ev.ID] = nil
				continue
			}
			venue := rc.VenueList[rng.Intn(len(rc.VenueList))]

			if rng.Float64() < requestedWindowChance {
				if start, end, ok := requestedWindow(rc, ev); ok {
					chrom[ev.ID] = &Slot{VenueID: venue.ID, Start: start, End: end}
					continue
				}
			}
			if start, end, ok := randomWindow(rng, rc, ev); ok {
				chrom[ev.ID] = &Slot{VenueID: venue.ID, Start: start, End: end}
			} else {
				chrom[ev.ID] = nil
			}
		}
		population = append(population, chrom)
	}
	return population
}

// requestedWindow returns the event's requested window when it falls
// inside the target week on a working day outside curfew.
func requestedWindow(rc *RunContext, ev *models.Event) (time.Time, time.Time, bool) {
	if ev.ReqStart == nil || ev.ReqEnd == nil {
		return time.Time{}, time.Time{}, false
	}
	startLocal := ev.ReqStart.In(rc.Location)
	if !rc.inTargetWeek(*ev.ReqStart) {
		return time.Time{}, time.Time{}, false
	}
	if startLocal.Weekday() == offDay {
		return time.Time{}, time.Time{}, false
	}
	startClock := clockOf(*ev.ReqStart, rc.Location)
	if !startClock.Before(curfewStart) || startClock.Before(curfewEnd) {
		return time.Time{}, time.Time{}, false
	}
	return ev.ReqStart.UTC(), ev.ReqEnd.UTC(), true
}

// randomWindow draws a random legal window within the week: a non-Sunday
// day, a start between the permitted daily hours, and the event's
// duration without spilling past curfew. Exhausting the attempt budget
// returns ok=false.
func randomWindow(rng *rand.Rand, rc *RunContext, ev *models.Event) (time.Time, time.Time, bool) {
	days := rc.WeekDays()
	if days <= 0 {
		return time.Time{}, time.Time{}, false
	}
	duration := rc.EventDuration(ev)

	for attempt := 0; attempt < slotAttempts; attempt++ {
		day := rc.LocalWeekStart.AddDate(0, 0, rng.Intn(days))
		if day.Weekday() == offDay {
			continue
		}
		startClock := ClockTime{
			Hour:   earliestStartHour + rng.Intn(latestStartHour-earliestStartHour+1),
			Minute: startMinutes[rng.Intn(len(startMinutes))],
		}
		start := startClock.on(day, rc.Location)
		end := start.Add(duration)
		if spillsPastCurfew(start, end, rc.Location) {
			continue
		}
		return start, end, true
	}
	return time.Time{}, time.Time{}, false
}

// spillsPastCurfew rejects windows whose local end runs past the start of
// curfew, or into the next morning beyond its end.
func spillsPastCurfew(start, end time.Time, loc *time.Location) bool {
	startLocal := start.In(loc)
	endLocal := end.In(loc)
	endClock := clockOf(end, loc)
	if endClock.After(curfewStart) && endClock != (ClockTime{}) {
		return true
	}
	if endLocal.YearDay() != startLocal.YearDay() && endClock.After(curfewEnd) {
		return true
	}
	return false
}
