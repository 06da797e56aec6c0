package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uvems/uvems-api/internal/models"
)

func TestEvaluateCleanAssignmentScoresSoftBonuses(t *testing.T) {
	loc := testLocation()
	reqStart := localUTC(loc, 8, 9, 0)
	reqEnd := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 100, "venue-aud", reqStart, reqEnd),
	})
	w := DefaultWeights()

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: reqStart, End: reqEnd},
	}, rc, w)

	require.Zero(t, result.Violations)
	// Base + full venue match + date and timeslot halves.
	expected := w.Base + w.VenueMatch + w.DateMatch*0.5 + w.TimeSlotMatch*0.5
	assert.InDelta(t, expected, result.Score, 0.001)
}

func TestEvaluatePreferenceVenueMatchIsDiscounted(t *testing.T) {
	loc := testLocation()
	reqStart := localUTC(loc, 8, 9, 0)
	reqEnd := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 100, "venue-cls", reqStart, reqEnd),
	}, func(in *RunContextInput) {
		in.Preferences = map[string][]models.Preference{
			"e1": {{EventID: "e1", PrefVenueID: strPtr("venue-aud")}},
		}
	})
	w := DefaultWeights()

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: reqStart, End: reqEnd},
	}, rc, w)

	require.Zero(t, result.Violations)
	expected := w.Base + w.VenueMatch*preferenceDiscount + w.DateMatch*0.5 + w.TimeSlotMatch*0.5
	assert.InDelta(t, expected, result.Score, 0.001)
}

func TestEvaluateOutsideWeekIsViolation(t *testing.T) {
	loc := testLocation()
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "", localUTC(loc, 8, 9, 0), localUTC(loc, 8, 11, 0)),
	})

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: localUTC(loc, 20, 9, 0), End: localUTC(loc, 20, 11, 0)},
	}, rc, DefaultWeights())
	assert.Equal(t, 1, result.Violations)
}

func TestEvaluateCurfewOverlapIsViolation(t *testing.T) {
	loc := testLocation()
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "", localUTC(loc, 8, 9, 0), localUTC(loc, 8, 11, 0)),
	})

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: localUTC(loc, 8, 21, 0), End: localUTC(loc, 8, 23, 0)},
	}, rc, DefaultWeights())
	assert.Equal(t, 1, result.Violations)
}

func TestEvaluateSameVenueOverlapViolation(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "venue-aud", start, end),
		testEvent("e2", 10, "venue-aud", start, end),
	})

	both := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": {VenueID: "venue-aud", Start: start, End: end},
	}, rc, DefaultWeights())
	assert.Equal(t, 2, both.Violations, "both overlapping assignments violate")

	split := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": {VenueID: "venue-cls", Start: start, End: end},
	}, rc, DefaultWeights())
	assert.Zero(t, split.Violations, "different venues do not conflict")

	oneDropped := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": nil,
	}, rc, DefaultWeights())
	assert.Zero(t, oneDropped.Violations)
}

func TestEvaluateExistingScheduleConflict(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "", start, end),
	}, func(in *RunContextInput) {
		in.Existing = []models.Schedule{
			{ID: "s1", EventID: "fixed-1", VenueID: "venue-aud", StartTime: start, EndTime: end},
		}
	})

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start.Add(30 * time.Minute), End: end.Add(30 * time.Minute)},
	}, rc, DefaultWeights())
	assert.Equal(t, 1, result.Violations, "existing bookings are immovable obstacles")
}

func TestEvaluateEquipmentShortageViolation(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "", start, end),
	}, func(in *RunContextInput) {
		in.EquipmentCounts = map[string]int{"Projector": 5}
		in.EquipmentNames = map[string]string{"eq-1": "Projector"}
		in.EquipmentRequests = map[string][]models.EventEquipment{
			"e1": {{EventID: "e1", EquipmentID: "eq-1", Quantity: 10}},
		}
	})

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
	}, rc, DefaultWeights())
	assert.Equal(t, 1, result.Violations, "demand above inventory is a hard violation")
}

func TestEvaluateAggregateEquipmentDemandAcrossOverlaps(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "", start, end),
		testEvent("e2", 10, "", start, end),
	}, func(in *RunContextInput) {
		in.EquipmentCounts = map[string]int{"Projector": 5}
		in.EquipmentNames = map[string]string{"eq-1": "Projector"}
		in.EquipmentRequests = map[string][]models.EventEquipment{
			"e1": {{EventID: "e1", EquipmentID: "eq-1", Quantity: 3}},
			"e2": {{EventID: "e2", EquipmentID: "eq-1", Quantity: 3}},
		}
	})

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": {VenueID: "venue-cls", Start: start, End: end},
	}, rc, DefaultWeights())
	assert.Equal(t, 2, result.Violations, "overlapping demand is aggregated across venues")
}

func TestEvaluateCapacityOverageIsSoftPenaltyOnly(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 60, "venue-cls", start, end),
	})
	w := DefaultWeights()

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-cls", Start: start, End: end},
	}, rc, w)

	require.Zero(t, result.Violations, "capacity overage is not a hard violation")
	expected := w.Base + w.VenueMatch + w.DateMatch*0.5 + w.TimeSlotMatch*0.5 -
		w.CapacityPenalty*(1+float64(60-40)/40)
	assert.InDelta(t, expected, result.Score, 0.001)
}

func TestEvaluateHecticWeekSuppressesVenueBlockages(t *testing.T) {
	loc := testLocation()
	weekStart, weekEnd := testWeek(loc)
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	events := []models.Event{testEvent("e1", 10, "", start, end)}

	calendar := models.AcademicCalendar{
		SchedulingConstraints: models.CalendarSchedulingConstraints{
			StandardVenueBlockages: map[string][]models.VenueBlockageWindow{
				"Classroom_weekday": {{StartTime: "07:00", EndTime: "19:00"}},
			},
		},
	}
	compile := func(cal models.AcademicCalendar) *WeekConstraints {
		constraints, err := CompileWeekConstraints(CompileInput{
			Calendar:     cal,
			AcademicYear: "2024-2025",
			WeekStart:    weekStart,
			WeekEnd:      weekEnd,
			Location:     loc,
		}, zap.NewNop())
		require.NoError(t, err)
		return constraints
	}

	chrom := Chromosome{"e1": {VenueID: "venue-cls", Start: start, End: end}}

	normal := buildTestContext(t, events, func(in *RunContextInput) {
		in.Constraints = compile(calendar)
	})
	assert.Equal(t, 1, Evaluate(chrom, normal, DefaultWeights()).Violations,
		"classroom daytime blockage applies on a normal week")

	calendar.HecticPeriods = []models.CalendarEntry{{Name: "University Week", Date: "Jan 6 - 10"}}
	hectic := buildTestContext(t, events, func(in *RunContextInput) {
		in.Constraints = compile(calendar)
	})
	assert.Zero(t, Evaluate(chrom, hectic, DefaultWeights()).Violations,
		"hectic weeks suspend standard venue blockages")
}

func TestEvaluateHecticBonusForRequestedDateInSpan(t *testing.T) {
	loc := testLocation()
	weekStart, weekEnd := testWeek(loc)
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)

	constraints, err := CompileWeekConstraints(CompileInput{
		Calendar: models.AcademicCalendar{
			HecticPeriods: []models.CalendarEntry{{Name: "University Week", Date: "Jan 6 - 10"}},
		},
		AcademicYear: "2024-2025",
		WeekStart:    weekStart,
		WeekEnd:      weekEnd,
		Location:     loc,
	}, zap.NewNop())
	require.NoError(t, err)

	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "venue-aud", start, end),
	}, func(in *RunContextInput) {
		in.Constraints = constraints
	})
	w := DefaultWeights()

	result := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
	}, rc, w)
	require.Zero(t, result.Violations)
	expected := w.Base + w.VenueMatch + w.DateMatch*0.5 + w.TimeSlotMatch*0.5 + w.HecticBonus
	assert.InDelta(t, expected, result.Score, 0.001)
}

func TestEvaluateViolationLowersTotalScore(t *testing.T) {
	loc := testLocation()
	start := localUTC(loc, 8, 9, 0)
	end := localUTC(loc, 8, 11, 0)
	rc := buildTestContext(t, []models.Event{
		testEvent("e1", 10, "venue-aud", start, end),
		testEvent("e2", 10, "venue-aud", start, end),
	})
	w := DefaultWeights()

	clean := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": nil,
	}, rc, w)
	dirty := Evaluate(Chromosome{
		"e1": {VenueID: "venue-aud", Start: start, End: end},
		"e2": {VenueID: "venue-aud", Start: start, End: end},
	}, rc, w)

	assert.True(t, clean.Better(dirty))
	assert.Less(t, dirty.Score, clean.Score)
}
