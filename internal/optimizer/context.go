package optimizer

import (
	"sort"
	"strings"
	"time"

	"github.com/uvems/uvems-api/internal/models"
)

// defaultEventDuration is assumed when a request has no usable window.
const defaultEventDuration = 90 * time.Minute

// RunContextInput bundles the raw week data handed to NewRunContext.
// WeekStart and WeekEnd are local midnights in Location; all event and
// schedule timestamps must already be normalized to UTC.
type RunContextInput struct {
	WeekStart         time.Time
	WeekEnd           time.Time
	Location          *time.Location
	Events            []models.Event
	Existing          []models.Schedule
	Venues            []models.Venue
	EquipmentCounts   map[string]int
	EquipmentNames    map[string]string
	EquipmentRequests map[string][]models.EventEquipment
	Preferences       map[string][]models.Preference
	Constraints       *WeekConstraints
}

// RunContext is the immutable bundle one optimization run operates on.
// It is built once per run and shared read-only across fitness workers.
type RunContext struct {
	LocalWeekStart time.Time
	LocalWeekEnd   time.Time
	WeekStart      time.Time // UTC instant of LocalWeekStart
	WeekEnd        time.Time // UTC instant of LocalWeekEnd
	Location       *time.Location

	Events     []models.Event
	EventsByID map[string]*models.Event
	EventIDs   []string

	Existing  []models.Schedule
	Venues    map[string]*models.Venue
	VenueList []*models.Venue

	EquipmentCounts   map[string]int
	EquipmentNames    map[string]string
	EquipmentRequests map[string][]models.EventEquipment
	Preferences       map[string][]models.Preference

	Constraints *WeekConstraints
}

// NewRunContext derives the lookup structures the evaluator depends on.
func NewRunContext(in RunContextInput) *RunContext {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	constraints := in.Constraints
	if constraints == nil {
		constraints = &WeekConstraints{VenueBlockages: map[string][]VenueBlockageRule{}}
	}

	rc := &RunContext{
		LocalWeekStart:    in.WeekStart,
		LocalWeekEnd:      in.WeekEnd,
		WeekStart:         ClockTime{}.on(in.WeekStart, loc),
		WeekEnd:           ClockTime{}.on(in.WeekEnd, loc),
		Location:          loc,
		Events:            in.Events,
		EventsByID:        make(map[string]*models.Event, len(in.Events)),
		EventIDs:          make([]string, 0, len(in.Events)),
		Existing:          in.Existing,
		Venues:            make(map[string]*models.Venue, len(in.Venues)),
		VenueList:         make([]*models.Venue, 0, len(in.Venues)),
		EquipmentCounts:   in.EquipmentCounts,
		EquipmentNames:    in.EquipmentNames,
		EquipmentRequests: in.EquipmentRequests,
		Preferences:       in.Preferences,
		Constraints:       constraints,
	}
	if rc.EquipmentCounts == nil {
		rc.EquipmentCounts = map[string]int{}
	}
	if rc.EquipmentNames == nil {
		rc.EquipmentNames = map[string]string{}
	}
	if rc.EquipmentRequests == nil {
		rc.EquipmentRequests = map[string][]models.EventEquipment{}
	}
	if rc.Preferences == nil {
		rc.Preferences = map[string][]models.Preference{}
	}

	for i := range in.Events {
		ev := &in.Events[i]
		rc.EventsByID[ev.ID] = ev
		rc.EventIDs = append(rc.EventIDs, ev.ID)
	}
	sort.Strings(rc.EventIDs)

	for i := range in.Venues {
		v := &in.Venues[i]
		rc.Venues[v.ID] = v
		rc.VenueList = append(rc.VenueList, v)
	}
	return rc
}

// WeekDays counts civil days in the target week.
func (rc *RunContext) WeekDays() int {
	days := 0
	for d := rc.LocalWeekStart; d.Before(rc.LocalWeekEnd); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// EventDuration is the event's requested duration, or the default when
// the request carries no valid window.
func (rc *RunContext) EventDuration(ev *models.Event) time.Duration {
	if ev.ReqStart != nil && ev.ReqEnd != nil && ev.ReqEnd.After(*ev.ReqStart) {
		return ev.ReqEnd.Sub(*ev.ReqStart)
	}
	return defaultEventDuration
}

// localDate truncates an instant to its local civil date midnight.
func (rc *RunContext) localDate(t time.Time) time.Time {
	t = t.In(rc.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, rc.Location)
}

// inTargetWeek reports whether the instant's local date falls inside the
// target week.
func (rc *RunContext) inTargetWeek(t time.Time) bool {
	d := rc.localDate(t)
	return !d.Before(rc.LocalWeekStart) && d.Before(rc.LocalWeekEnd)
}

// venueClassKey maps a venue to the blockage table key base, or "" when
// no standard blockage class applies.
func venueClassKey(v *models.Venue) string {
	if strings.Contains(strings.ToLower(v.VenueType), "classroom") {
		return "Classroom"
	}
	if strings.Contains(strings.ToLower(v.Name), "uls") {
		return "ULS"
	}
	return ""
}

// blockageKey resolves the full blockage table key for a venue on the
// given local weekday, or "" when the day has no standard blockage class.
func blockageKey(v *models.Venue, weekday time.Weekday) string {
	base := venueClassKey(v)
	if base == "" {
		return ""
	}
	switch {
	case weekday >= time.Monday && weekday <= time.Friday:
		return base + "_weekday"
	case weekday == time.Saturday:
		return base + "_weekend_Sat"
	default:
		return ""
	}
}
