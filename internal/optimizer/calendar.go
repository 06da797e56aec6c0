package optimizer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uvems/uvems-api/internal/models"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
)

// Daily scheduling window in local civil time. The curfew spans the end
// of each day into the next morning.
var (
	curfewStart = ClockTime{Hour: 22}
	curfewEnd   = ClockTime{Hour: 6}
)

// offDay is the weekly day on which nothing may be scheduled.
const offDay = time.Sunday

// preExamBlockDays is how many civil days before an exam period start are
// blocked outright.
const preExamBlockDays = 7

// cutoffMonth splits an academic year label like "2024-2025": months
// before it belong to the later calendar year, the rest to the earlier.
const cutoffMonth = time.July

// ClockTime is a local time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS" strings.
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// After reports whether c is strictly later in the day than other.
func (c ClockTime) After(other ClockTime) bool {
	return c.minutes() > other.minutes()
}

// Before reports whether c is strictly earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool {
	return c.minutes() < other.minutes()
}

// on materializes the clock time on the given local date as a UTC instant.
func (c ClockTime) on(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, loc).UTC()
}

func clockOf(t time.Time, loc *time.Location) ClockTime {
	t = t.In(loc)
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// BlockedInterval is a venue-independent unavailability window on the
// absolute UTC timeline.
type BlockedInterval struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// VenueBlockageRule closes a venue class during a local time-of-day range.
// Day, when non-empty, restricts the rule to that weekday name.
type VenueBlockageRule struct {
	Start ClockTime
	End   ClockTime
	Day   string
}

// DateSpan covers the civil days from First to Last inclusive, stored as
// local midnights.
type DateSpan struct {
	First time.Time
	Last  time.Time
}

// Contains reports whether the local midnight d falls inside the span.
func (s DateSpan) Contains(d time.Time) bool {
	return !d.Before(s.First) && !d.After(s.Last)
}

// WeekConstraints is the compiled constraint set for one target week.
// During a hectic week the standard venue blockage table is suspended.
type WeekConstraints struct {
	HecticWeek     bool
	HecticSpans    []DateSpan
	General        []BlockedInterval
	VenueBlockages map[string][]VenueBlockageRule
}

// CompileInput carries everything the constraint compiler needs.
type CompileInput struct {
	Calendar     models.AcademicCalendar
	AcademicYear string
	WeekStart    time.Time // local midnight, inclusive
	WeekEnd      time.Time // local midnight, exclusive
	Location     *time.Location
}

// CompileWeekConstraints turns the raw calendar definition into concrete
// UTC blocked intervals and venue blockage rules for the target week.
// Unparseable calendar fragments are logged and skipped; only a malformed
// academic year label fails the whole compile.
func CompileWeekConstraints(in CompileInput, logger *zap.Logger) (*WeekConstraints, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	yearStart, yearEnd, err := parseAcademicYear(in.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConstraintCompile.Code, appErrors.ErrConstraintCompile.Status, "invalid academic year label")
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	out := &WeekConstraints{VenueBlockages: map[string][]VenueBlockageRule{}}
	blocked := map[time.Time]bool{}

	for _, period := range in.Calendar.HecticPeriods {
		dates := parseDateList(period.Date, yearStart, yearEnd, loc, logger)
		if len(dates) == 0 {
			continue
		}
		span := DateSpan{First: dates[0], Last: dates[len(dates)-1]}
		out.HecticSpans = append(out.HecticSpans, span)
		if in.WeekStart.Before(span.Last.AddDate(0, 0, 1)) && in.WeekEnd.After(span.First) {
			out.HecticWeek = true
			logger.Sugar().Infow("target week overlaps hectic period", "period", entryLabel(period, "hectic period"))
		}
	}

	categories := []struct {
		label   string
		entries []models.CalendarEntry
	}{
		{"National Holidays", in.Calendar.UnavailableDates.NationalHolidays},
		{"School Holidays Breaks", in.Calendar.UnavailableDates.SchoolHolidayBreaks},
		{"Examination Periods", in.Calendar.UnavailableDates.ExaminationPeriods},
	}
	for _, cat := range categories {
		for _, entry := range cat.entries {
			reason := entryLabel(entry, cat.label)
			for _, day := range parseDateList(entry.Date, yearStart, yearEnd, loc, logger) {
				if day.Before(in.WeekStart) || !day.Before(in.WeekEnd) {
					continue
				}
				out.General = append(out.General, fullDayBlock(day, loc, reason))
				blocked[day] = true
			}
		}
	}

	var examStarts []time.Time
	seenStarts := map[time.Time]bool{}
	for _, entry := range in.Calendar.UnavailableDates.ExaminationPeriods {
		dates := parseDateList(entry.Date, yearStart, yearEnd, loc, logger)
		if len(dates) > 0 && !seenStarts[dates[0]] {
			examStarts = append(examStarts, dates[0])
			seenStarts[dates[0]] = true
		}
	}
	sort.Slice(examStarts, func(i, j int) bool { return examStarts[i].Before(examStarts[j]) })
	for _, examStart := range examStarts {
		reason := fmt.Sprintf("Pre-Exam Week Blockage (Exams starting %s)", examStart.Format("Jan 02"))
		for offset := preExamBlockDays; offset > 0; offset-- {
			day := examStart.AddDate(0, 0, -offset)
			if day.Before(in.WeekStart) || !day.Before(in.WeekEnd) || blocked[day] {
				continue
			}
			out.General = append(out.General, fullDayBlock(day, loc, reason))
			blocked[day] = true
		}
	}

	for day := in.WeekStart; day.Before(in.WeekEnd); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == offDay && !blocked[day] {
			out.General = append(out.General, fullDayBlock(day, loc, "Sunday Blockage"))
		}
		out.General = append(out.General, BlockedInterval{
			Start:  curfewStart.on(day, loc),
			End:    curfewEnd.on(day.AddDate(0, 0, 1), loc),
			Reason: fmt.Sprintf("Night Curfew (%s-%s)", curfewStart, curfewEnd),
		})
	}

	if !out.HecticWeek {
		for key, windows := range in.Calendar.SchedulingConstraints.StandardVenueBlockages {
			var rules []VenueBlockageRule
			for _, w := range windows {
				start, err := ParseClockTime(w.StartTime)
				if err != nil {
					logger.Sugar().Warnw("skipping venue blockage window", "key", key, "error", err)
					continue
				}
				end, err := ParseClockTime(w.EndTime)
				if err != nil {
					logger.Sugar().Warnw("skipping venue blockage window", "key", key, "error", err)
					continue
				}
				rules = append(rules, VenueBlockageRule{Start: start, End: end, Day: w.Day})
			}
			if len(rules) > 0 {
				out.VenueBlockages[key] = rules
			}
		}
	}

	sort.Slice(out.General, func(i, j int) bool { return out.General[i].Start.Before(out.General[j].Start) })
	return out, nil
}

func parseAcademicYear(label string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(label), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("academic year %q must look like 2024-2025", label)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("academic year %q has invalid start year", label)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("academic year %q has invalid end year", label)
	}
	return start, end, nil
}

func entryLabel(entry models.CalendarEntry, fallback string) string {
	if entry.Event != "" {
		return entry.Event
	}
	if entry.Name != "" {
		return entry.Name
	}
	return fallback
}

func fullDayBlock(day time.Time, loc *time.Location, reason string) BlockedInterval {
	return BlockedInterval{
		Start:  ClockTime{}.on(day, loc),
		End:    ClockTime{}.on(day.AddDate(0, 0, 1), loc),
		Reason: reason,
	}
}

var (
	singleDayRe    = regexp.MustCompile(`^[A-Za-z]{3,}\s+\d{1,2}$`)
	sameMonthRe    = regexp.MustCompile(`^([A-Za-z]{3,}\s+\d{1,2})\s+-\s+(\d{1,2})$`)
	crossMonthRe   = regexp.MustCompile(`^([A-Za-z]{3,}\s+\d{1,2})\s+-\s+([A-Za-z]{3,}\s+\d{1,2})$`)
	listMonthDayRe = regexp.MustCompile(`^([A-Za-z]{3,})\s+(\d{1,2})`)
	listDayRangeRe = regexp.MustCompile(`^(\d{1,2})\s*-\s*(\d{1,2})$`)
	listBareDayRe  = regexp.MustCompile(`^\d{1,2}$`)
)

// parseDateList expands a free-text calendar date expression into sorted,
// de-duplicated local midnights. Supported shapes: "Dec 25",
// "Oct 28 - 31", "Dec 20 - Jan 5", "Nov 1 & 2", "Apr 9, 10 - 12" and a
// trailing "onwards" treated as its single start day. Anything else is
// logged and skipped.
func parseDateList(raw string, yearStart, yearEnd int, loc *time.Location, logger *zap.Logger) []time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	seen := map[time.Time]bool{}
	add := func(d time.Time) { seen[d] = true }

	switch {
	case singleDayRe.MatchString(raw):
		if d, ok := parseMonthDay(raw, yearStart, yearEnd, loc); ok {
			add(d)
		} else {
			logger.Sugar().Warnw("unparseable calendar date", "value", raw)
		}

	case sameMonthRe.MatchString(raw):
		m := sameMonthRe.FindStringSubmatch(raw)
		start, ok := parseMonthDay(m[1], yearStart, yearEnd, loc)
		if !ok {
			logger.Sugar().Warnw("unparseable calendar date range", "value", raw)
			break
		}
		endDay, _ := strconv.Atoi(m[2])
		for d := start; d.Day() <= endDay && d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
			add(d)
		}

	case crossMonthRe.MatchString(raw):
		m := crossMonthRe.FindStringSubmatch(raw)
		start, okS := parseMonthDay(m[1], yearStart, yearEnd, loc)
		end, okE := parseMonthDay(m[2], yearStart, yearEnd, loc)
		if !okS || !okE {
			logger.Sugar().Warnw("unparseable calendar date range", "value", raw)
			break
		}
		// A December start resolving after a January end means the range
		// crosses the calendar year boundary.
		if start.After(end) && start.Month() > time.June && end.Month() < time.July {
			end = time.Date(start.Year()+1, end.Month(), end.Day(), 0, 0, 0, 0, loc)
		}
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			add(d)
		}

	case strings.ContainsAny(raw, ",&"):
		parts := strings.Split(strings.ReplaceAll(raw, "&", ","), ",")
		currentMonth := ""
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if m := listMonthDayRe.FindStringSubmatch(part); m != nil {
				currentMonth = m[1]
				if d, ok := parseMonthDay(currentMonth+" "+m[2], yearStart, yearEnd, loc); ok {
					add(d)
				} else {
					logger.Sugar().Warnw("unparseable calendar list part", "value", part, "context", raw)
				}
			} else if m := listDayRangeRe.FindStringSubmatch(part); m != nil && currentMonth != "" {
				start, ok := parseMonthDay(currentMonth+" "+m[1], yearStart, yearEnd, loc)
				if !ok {
					logger.Sugar().Warnw("unparseable calendar list range", "value", part, "context", raw)
					continue
				}
				endDay, _ := strconv.Atoi(m[2])
				for d := start; d.Day() <= endDay && d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
					add(d)
				}
			} else if listBareDayRe.MatchString(part) && currentMonth != "" {
				if d, ok := parseMonthDay(currentMonth+" "+part, yearStart, yearEnd, loc); ok {
					add(d)
				} else {
					logger.Sugar().Warnw("unparseable calendar list day", "value", part, "context", raw)
				}
			} else {
				logger.Sugar().Warnw("unhandled calendar list part", "value", part, "context", raw)
			}
		}

	case strings.Contains(raw, "onwards"):
		part := strings.TrimSpace(strings.ReplaceAll(raw, "onwards", ""))
		if singleDayRe.MatchString(part) {
			if d, ok := parseMonthDay(part, yearStart, yearEnd, loc); ok {
				add(d)
			}
		} else {
			logger.Sugar().Warnw("unparseable onwards date", "value", raw)
		}

	default:
		logger.Sugar().Warnw("unrecognized calendar date format", "value", raw)
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// parseMonthDay resolves "Dec 25" style strings, picking the calendar year
// from the academic year halves split at the cutoff month.
func parseMonthDay(s string, yearStart, yearEnd int, loc *time.Location) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	var parsed time.Time
	var err error
	for _, layout := range []string{"Jan 2", "January 2"} {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, false
	}
	year := yearStart
	if parsed.Month() < cutoffMonth {
		year = yearEnd
	}
	d := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, loc)
	// Reject day overflow such as "Feb 30" normalizing into March.
	if d.Month() != parsed.Month() {
		return time.Time{}, false
	}
	return d, true
}
