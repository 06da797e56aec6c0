package optimizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uvems/uvems-api/internal/models"
)

// sampleTimes are the representative local start times probed per day and
// venue when explaining an unscheduled event.
var sampleTimes = []ClockTime{
	{Hour: 9},
	{Hour: 10, Minute: 30},
	{Hour: 13},
	{Hour: 14, Minute: 30},
	{Hour: 16},
}

// Analyze explains why each unscheduled event could not be placed. It
// samples daytime slots across the week and venues and collects the
// distinct blocking reasons, grouped by reason category. Cross-event
// venue conflicts are deliberately not checked: the goal is to separate
// structural infeasibility from contention with other requests.
func Analyze(rc *RunContext, unscheduledIDs []string) map[string][]string {
	results := make(map[string][]string, len(unscheduledIDs))
	if len(unscheduledIDs) == 0 {
		return results
	}
	if len(rc.VenueList) == 0 {
		for _, id := range unscheduledIDs {
			results[id] = []string{"Post-mortem: no venues available."}
		}
		return results
	}

	for _, id := range unscheduledIDs {
		ev := rc.EventsByID[id]
		if ev == nil {
			continue
		}
		duration := rc.EventDuration(ev)
		reasons := map[string]bool{}
		slotsChecked := 0

		for day := rc.LocalWeekStart; day.Before(rc.LocalWeekEnd); day = day.AddDate(0, 0, 1) {
			if day.Weekday() == offDay {
				continue
			}
			for _, venue := range rc.VenueList {
				for _, clock := range sampleTimes {
					if !clock.Before(curfewStart) || clock.Before(curfewEnd) {
						continue
					}
					start := clock.on(day, rc.Location)
					end := start.Add(duration)
					if spillsPastCurfew(start, end, rc.Location) {
						continue
					}
					slotsChecked++
					if reason := slotBlockReason(rc, ev, venue.ID, start, end); reason != "" {
						reasons[reason] = true
					}
				}
			}
		}

		switch {
		case slotsChecked == 0:
			results[id] = []string{"No valid daytime slots could be checked (review target week settings)."}
		case len(reasons) == 0:
			results[id] = []string{"No structural constraint conflicts found in sampled daytime slots. Failure is likely contention with other accepted events."}
		default:
			results[id] = groupReasons(reasons)
		}
	}
	return results
}

// slotBlockReason runs the single-event constraint checks for one sampled
// slot and returns the first blocking reason, or "" when the slot passes.
func slotBlockReason(rc *RunContext, ev *models.Event, venueID string, start, end time.Time) string {
	if !rc.inTargetWeek(start) {
		return fmt.Sprintf("Slot Outside Target Week (%s)", rc.localDate(start).Format("2006-01-02"))
	}

	for _, block := range rc.Constraints.General {
		if Overlap(start, end, block.Start, block.End) {
			if block.Reason != "" {
				return block.Reason
			}
			return "General Unavailability"
		}
	}

	if !rc.Constraints.HecticWeek {
		venue := rc.Venues[venueID]
		if venue == nil {
			return fmt.Sprintf("Venue Not Found (%s)", venueID)
		}
		startLocal := start.In(rc.Location)
		if key := blockageKey(venue, startLocal.Weekday()); key != "" {
			day := rc.localDate(start)
			for _, rule := range rc.Constraints.VenueBlockages[key] {
				if rule.Day != "" && startLocal.Weekday().String() != rule.Day {
					continue
				}
				if Overlap(start, end, rule.Start.on(day, rc.Location), rule.End.on(day, rc.Location)) {
					daySuffix := ""
					if rule.Day != "" {
						daySuffix = fmt.Sprintf(" (%s)", rule.Day)
					}
					return fmt.Sprintf("Venue Blockage: %s%s (%s-%s)", key, daySuffix, rule.Start, rule.End)
				}
			}
		}
	}

	needed := map[string]int{}
	for _, req := range rc.EquipmentRequests[ev.ID] {
		name, ok := rc.EquipmentNames[req.EquipmentID]
		if !ok {
			return fmt.Sprintf("Requested Equipment ID %q Not Found", req.EquipmentID)
		}
		if _, ok := rc.EquipmentCounts[name]; !ok {
			return fmt.Sprintf("Equipment %q Not Found in Inventory", name)
		}
		qty := req.Quantity
		if qty <= 0 {
			qty = 1
		}
		needed[name] += qty
	}
	for name, qty := range needed {
		if qty > rc.EquipmentCounts[name] {
			return fmt.Sprintf("Equipment Unavailable: %q (Needs %d, Has %d)", name, qty, rc.EquipmentCounts[name])
		}
	}

	venue := rc.Venues[venueID]
	if venue == nil {
		return fmt.Sprintf("Venue Not Found (%s)", venueID)
	}
	if ev.EstAttendees > venue.Occupancy {
		return fmt.Sprintf("Capacity Exceeded (Needs %d, Venue Has %d)", ev.EstAttendees, venue.Occupancy)
	}

	return ""
}

// groupReasons buckets reasons by their category prefix (text before the
// first colon) and renders a stable, indented summary.
func groupReasons(reasons map[string]bool) []string {
	grouped := map[string][]string{}
	for reason := range reasons {
		category := reason
		if idx := strings.Index(reason, ":"); idx >= 0 {
			category = reason[:idx]
		}
		grouped[category] = append(grouped[category], reason)
	}

	categories := make([]string, 0, len(grouped))
	for category := range grouped {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	out := []string{"Potential blocking constraints identified (based on sampled daytime slots):"}
	for _, category := range categories {
		out = append(out, fmt.Sprintf("  %s:", category))
		sort.Strings(grouped[category])
		for _, reason := range grouped[category] {
			out = append(out, fmt.Sprintf("    - %s", reason))
		}
	}
	return out
}
