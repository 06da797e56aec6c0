package optimizer

import (
	"time"

	"github.com/uvems/uvems-api/internal/models"
)

// Weights tunes the soft scoring terms. CapacityPenalty and
// ViolationPenalty are positive magnitudes subtracted from the score.
type Weights struct {
	Base             float64
	VenueMatch       float64
	DateMatch        float64
	TimeSlotMatch    float64
	HecticBonus      float64
	CapacityPenalty  float64
	ViolationPenalty float64
}

// DefaultWeights returns the standard scoring profile.
func DefaultWeights() Weights {
	return Weights{
		Base:             10,
		VenueMatch:       50,
		DateMatch:        20,
		TimeSlotMatch:    30,
		HecticBonus:      100,
		CapacityPenalty:  10,
		ViolationPenalty: 10000,
	}
}

// preferenceDiscount scales soft bonuses earned through an alternative
// preference rather than the original request.
const preferenceDiscount = 0.8

// placedSlot is an occupied venue window, from this chromosome or an
// existing booking, used for conflict discovery.
type placedSlot struct {
	start   time.Time
	end     time.Time
	eventID string
}

// Evaluate scores a chromosome against the run context. Hard checks run
// in sequence per event; the first failure counts one violation and
// voids the event's soft score for this generation.
func Evaluate(chrom Chromosome, rc *RunContext, w Weights) FitnessResult {
	violations := 0
	soft := 0.0

	byVenue := make(map[string][]placedSlot)
	for eventID, slot := range chrom {
		if slot == nil {
			continue
		}
		byVenue[slot.VenueID] = append(byVenue[slot.VenueID], placedSlot{start: slot.Start, end: slot.End, eventID: eventID})
	}
	for _, existing := range rc.Existing {
		byVenue[existing.VenueID] = append(byVenue[existing.VenueID], placedSlot{
			start:   existing.StartTime,
			end:     existing.EndTime,
			eventID: existing.EventID,
		})
	}

	for eventID, slot := range chrom {
		if slot == nil {
			continue
		}
		ev := rc.EventsByID[eventID]
		if ev == nil {
			violations++
			continue
		}

		if !rc.inTargetWeek(slot.Start) {
			violations++
			continue
		}
		if hitsGeneralBlock(rc, slot) {
			violations++
			continue
		}
		if !rc.Constraints.HecticWeek && hitsVenueBlockage(rc, slot) {
			violations++
			continue
		}
		if hitsVenueConflict(byVenue, eventID, slot) {
			violations++
			continue
		}
		if hitsEquipmentShortage(rc, byVenue, eventID, slot) {
			violations++
			continue
		}

		soft += softScore(rc, ev, slot, w)
	}

	return FitnessResult{
		Score:      soft - float64(violations)*w.ViolationPenalty,
		Violations: violations,
	}
}

func hitsGeneralBlock(rc *RunContext, slot *Slot) bool {
	for _, block := range rc.Constraints.General {
		if Overlap(slot.Start, slot.End, block.Start, block.End) {
			return true
		}
	}
	return false
}

func hitsVenueBlockage(rc *RunContext, slot *Slot) bool {
	venue := rc.Venues[slot.VenueID]
	if venue == nil {
		return true
	}
	startLocal := slot.Start.In(rc.Location)
	key := blockageKey(venue, startLocal.Weekday())
	if key == "" {
		return false
	}
	day := rc.localDate(slot.Start)
	for _, rule := range rc.Constraints.VenueBlockages[key] {
		if rule.Day != "" && startLocal.Weekday().String() != rule.Day {
			continue
		}
		blockStart := rule.Start.on(day, rc.Location)
		blockEnd := rule.End.on(day, rc.Location)
		if Overlap(slot.Start, slot.End, blockStart, blockEnd) {
			return true
		}
	}
	return false
}

func hitsVenueConflict(byVenue map[string][]placedSlot, eventID string, slot *Slot) bool {
	for _, other := range byVenue[slot.VenueID] {
		if other.eventID != eventID && Overlap(slot.Start, slot.End, other.start, other.end) {
			return true
		}
	}
	return false
}

// hitsEquipmentShortage aggregates equipment demand across every
// assignment, in any venue, whose window overlaps this one and compares
// it against the inventory counts.
func hitsEquipmentShortage(rc *RunContext, byVenue map[string][]placedSlot, eventID string, slot *Slot) bool {
	concurrent := map[string]bool{eventID: true}
	for _, slots := range byVenue {
		for _, other := range slots {
			if other.eventID != eventID && Overlap(slot.Start, slot.End, other.start, other.end) {
				concurrent[other.eventID] = true
			}
		}
	}

	needed := map[string]int{}
	for id := range concurrent {
		for _, req := range rc.EquipmentRequests[id] {
			name, ok := rc.EquipmentNames[req.EquipmentID]
			if !ok {
				continue
			}
			qty := req.Quantity
			if qty <= 0 {
				qty = 1
			}
			needed[name] += qty
		}
	}
	for name, qty := range needed {
		if qty > rc.EquipmentCounts[name] {
			return true
		}
	}
	return false
}

func softScore(rc *RunContext, ev *models.Event, slot *Slot, w Weights) float64 {
	score := w.Base

	if ev.ReqVenueID != nil && slot.VenueID == *ev.ReqVenueID {
		score += w.VenueMatch
	} else {
		for _, pref := range rc.Preferences[ev.ID] {
			if pref.PrefVenueID != nil && slot.VenueID == *pref.PrefVenueID {
				score += w.VenueMatch * preferenceDiscount
				break
			}
		}
	}

	score += dateTimeScore(rc, ev, slot, w)

	if rc.Constraints.HecticWeek && ev.ReqStart != nil {
		reqDate := rc.localDate(*ev.ReqStart)
		for _, span := range rc.Constraints.HecticSpans {
			if span.Contains(reqDate) {
				score += w.HecticBonus
				break
			}
		}
	}

	if venue := rc.Venues[slot.VenueID]; venue != nil {
		if ev.EstAttendees > venue.Occupancy {
			over := float64(ev.EstAttendees - venue.Occupancy)
			base := float64(venue.Occupancy)
			if base < 1 {
				base = 1
			}
			score -= w.CapacityPenalty * (1 + over/base)
		}
	}
	return score
}

// dateTimeScore rewards matching the requested date and time window, or,
// failing that, the best-matching alternative preference at a discount.
func dateTimeScore(rc *RunContext, ev *models.Event, slot *Slot, w Weights) float64 {
	slotDate := rc.localDate(slot.Start)

	if ev.ReqStart != nil && rc.localDate(*ev.ReqStart).Equal(slotDate) {
		score := w.DateMatch * 0.5
		if ev.ReqEnd != nil && Overlap(slot.Start, slot.End, *ev.ReqStart, *ev.ReqEnd) {
			score += w.TimeSlotMatch * 0.5
		}
		return score
	}

	best := 0.0
	for _, pref := range rc.Preferences[ev.ID] {
		if pref.PrefDate == nil || !rc.localDate(*pref.PrefDate).Equal(slotDate) {
			continue
		}
		score := w.DateMatch * 0.5
		if pref.PrefSlotStart != nil && pref.PrefSlotEnd != nil &&
			Overlap(slot.Start, slot.End, *pref.PrefSlotStart, *pref.PrefSlotEnd) {
			score += w.TimeSlotMatch * 0.5
		}
		if discounted := score * preferenceDiscount; discounted > best {
			best = discounted
		}
	}
	return best
}
