package optimizer

import (
	"fmt"
	"sort"
)

// Report summarises one optimization run: inputs, the hyperparameters in
// effect, the winning candidate's verified fitness, the active week
// constraints, and the post-mortem findings for unscheduled events.
type Report struct {
	EventCount         int                 `json:"event_count"`
	Params             Params              `json:"params"`
	HecticWeek         bool                `json:"hectic_week"`
	BestFitness        float64             `json:"best_fitness"`
	Violations         int                 `json:"violations"`
	GeneralConstraints []string            `json:"general_constraints"`
	VenueBlockages     []string            `json:"venue_blockages"`
	Unscheduled        map[string][]string `json:"unscheduled,omitempty"`
	Summary            string              `json:"summary"`
}

func newReport(rc *RunContext, params Params) *Report {
	r := &Report{
		EventCount:         len(rc.Events),
		Params:             params,
		HecticWeek:         rc.Constraints.HecticWeek,
		GeneralConstraints: formatBlockedIntervals(rc),
		Unscheduled:        map[string][]string{},
	}
	if !rc.Constraints.HecticWeek {
		r.VenueBlockages = formatVenueBlockages(rc.Constraints)
	}
	return r
}

// formatBlockedIntervals renders the general blocks active during the
// target week, in start order.
func formatBlockedIntervals(rc *RunContext) []string {
	var out []string
	for _, block := range rc.Constraints.General {
		if !Overlap(block.Start, block.End, rc.WeekStart, rc.WeekEnd) {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %s - %s",
			block.Reason,
			block.Start.Format("2006-01-02 15:04 UTC"),
			block.End.Format("2006-01-02 15:04 UTC"),
		))
	}
	return out
}

// formatVenueBlockages renders the standard blockage table as
// "key: HH:MM-HH:MM" lines, sorted by key.
func formatVenueBlockages(constraints *WeekConstraints) []string {
	keys := make([]string, 0, len(constraints.VenueBlockages))
	for key := range constraints.VenueBlockages {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []string
	for _, key := range keys {
		for _, rule := range constraints.VenueBlockages[key] {
			line := fmt.Sprintf("%s: %s-%s", key, rule.Start, rule.End)
			if rule.Day != "" {
				line += fmt.Sprintf(" (%s)", rule.Day)
			}
			out = append(out, line)
		}
	}
	return out
}
