package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uvems/uvems-api/internal/dto"
	"github.com/uvems/uvems-api/internal/models"
	"github.com/uvems/uvems-api/internal/optimizer"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
)

// Monday in UTC.
var testWeekStart = "2025-01-06"

type fakeEventRepo struct {
	mu          sync.Mutex
	events      []models.Event
	err         error
	statusCalls []statusCall
}

type statusCall struct {
	IDs  []string
	From models.EventStatus
	To   models.EventStatus
}

func (f *fakeEventRepo) ListPendingInWindow(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	return f.events, f.err
}

func (f *fakeEventRepo) UpdateStatusWhere(ctx context.Context, exec sqlx.ExtContext, ids []string, from, to models.EventStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{IDs: ids, From: from, To: to})
	return int64(len(ids)), nil
}

type fakeVenueRepo struct {
	venues []models.Venue
	err    error
}

func (f *fakeVenueRepo) ListAll(ctx context.Context) ([]models.Venue, error) {
	return f.venues, f.err
}

type fakeEquipmentRepo struct {
	mu       sync.Mutex
	items    []models.Equipment
	requests []models.EventEquipment
	queried  [][]string
}

func (f *fakeEquipmentRepo) ListAll(ctx context.Context) ([]models.Equipment, error) {
	return f.items, nil
}

func (f *fakeEquipmentRepo) ListRequestsByEventIDs(ctx context.Context, eventIDs []string) ([]models.EventEquipment, error) {
	f.mu.Lock()
	f.queried = append(f.queried, append([]string(nil), eventIDs...))
	f.mu.Unlock()
	allowed := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		allowed[id] = true
	}
	var out []models.EventEquipment
	for _, req := range f.requests {
		if allowed[req.EventID] {
			out = append(out, req)
		}
	}
	return out, nil
}

type fakePreferenceRepo struct {
	prefs []models.Preference
}

func (f *fakePreferenceRepo) ListByEventIDs(ctx context.Context, eventIDs []string) ([]models.Preference, error) {
	return f.prefs, nil
}

type fakeScheduleRepo struct {
	mu       sync.Mutex
	existing []models.Schedule
	created  []*models.Schedule
}

func (f *fakeScheduleRepo) ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Schedule, error) {
	return f.existing, nil
}

func (f *fakeScheduleRepo) BulkCreateWithTx(ctx context.Context, tx sqlx.ExtContext, schedules []*models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, schedules...)
	return nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[string]*models.OptimizationRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: map[string]*models.OptimizationRun{}}
}

func (f *fakeRunRepo) Create(ctx context.Context, run *models.OptimizationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *run
	f.runs[run.ID] = &stored
	return nil
}

func (f *fakeRunRepo) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok || run.Status != models.OptimizationRunQueued {
		return errors.New("run is not queued")
	}
	run.Status = models.OptimizationRunRunning
	run.StartedAt = &startedAt
	return nil
}

func (f *fakeRunRepo) Complete(ctx context.Context, run *models.OptimizationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *run
	f.runs[run.ID] = &stored
	return nil
}

func (f *fakeRunRepo) FindByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stored := *run
	return &stored, nil
}

func (f *fakeRunRepo) List(ctx context.Context, filter models.OptimizationRunFilter) ([]models.OptimizationRun, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OptimizationRun
	for _, run := range f.runs {
		out = append(out, *run)
	}
	return out, len(out), nil
}

func (f *fakeRunRepo) get(id string) *models.OptimizationRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[id]
}

type fakeCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{items: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.items {
		delete(f.items, k)
	}
	return nil
}

type optimizerFixture struct {
	svc       *OptimizerService
	events    *fakeEventRepo
	venues    *fakeVenueRepo
	equipment *fakeEquipmentRepo
	schedules *fakeScheduleRepo
	runs      *fakeRunRepo
	cacheRepo *fakeCacheRepo
}

func pendingEvent(id string, start time.Time, attendees int) models.Event {
	end := start.Add(2 * time.Hour)
	return models.Event{
		ID:           id,
		Name:         "Event " + id,
		OrgID:        "org-1",
		Status:       models.EventStatusPending,
		EstAttendees: attendees,
		ReqStart:     &start,
		ReqEnd:       &end,
	}
}

func newOptimizerFixture(t *testing.T, tx txProvider) *optimizerFixture {
	t.Helper()
	weekStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	events := &fakeEventRepo{events: []models.Event{
		pendingEvent("ev-1", weekStart.Add(33*time.Hour), 40),
		pendingEvent("ev-2", weekStart.Add(58*time.Hour), 90),
	}}
	venues := &fakeVenueRepo{venues: []models.Venue{
		{ID: "venue-1", Name: "Main Auditorium", VenueType: "auditorium", Occupancy: 200},
		{ID: "venue-2", Name: "Room 204", VenueType: "classroom", Occupancy: 60},
	}}
	equipment := &fakeEquipmentRepo{}
	schedules := &fakeScheduleRepo{}
	runs := newFakeRunRepo()
	cacheRepo := newFakeCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)

	svc, err := NewOptimizerService(
		events,
		venues,
		equipment,
		&fakePreferenceRepo{},
		schedules,
		runs,
		tx,
		cache,
		metrics,
		nil,
		zap.NewNop(),
		OptimizerServiceConfig{
			AcademicYear: "2024-2025",
			Timezone:     "UTC",
			Params: optimizer.Params{
				PopulationSize: 16,
				MaxGenerations: 8,
				MutationRate:   0.15,
				CrossoverRate:  0.8,
				TournamentSize: 3,
				Workers:        2,
			},
			ProposalTTL:    time.Minute,
			ReportCacheTTL: time.Minute,
			QueueWorkers:   1,
		},
	)
	require.NoError(t, err)
	svc.loadCalendar = func() (models.AcademicCalendar, error) {
		return models.AcademicCalendar{AcademicYear: "2024-2025"}, nil
	}
	svc.seedFn = func() int64 { return 42 }
	return &optimizerFixture{svc: svc, events: events, venues: venues, equipment: equipment, schedules: schedules, runs: runs, cacheRepo: cacheRepo}
}

func TestOptimizerServiceOptimizeWeek(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	resp, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: testWeekStart}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.NotEmpty(t, resp.ProposalID)
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.Entries, 2)
	assert.Empty(t, resp.Unscheduled)
	assert.NotEmpty(t, resp.Report.Summary)
	assert.Equal(t, 2, resp.Report.EventCount)
	assert.Zero(t, resp.Report.Violations)

	run := fx.runs.get(resp.RunID)
	require.NotNil(t, run)
	assert.Equal(t, models.OptimizationRunCompleted, run.Status)
	assert.Equal(t, 2, run.ScheduledCount)
	assert.NotEmpty(t, run.Report)

	// the report lands in the cache under the week key
	var cached dto.RunReport
	weekKey := reportCacheKey(time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, fx.cacheRepo.Get(context.Background(), weekKey, &cached))
	assert.Equal(t, resp.Report.Summary, cached.Summary)
}

func TestOptimizerServiceCountsExistingCommitmentEquipment(t *testing.T) {
	fx := newOptimizerFixture(t, nil)
	weekStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

	fx.events.events = []models.Event{pendingEvent("ev-1", weekStart.Add(33*time.Hour), 40)}
	fx.equipment.items = []models.Equipment{
		{ID: "eq-1", Name: "Projector"},
		{ID: "eq-2", Name: "Projector"},
		{ID: "eq-3", Name: "Projector"},
		{ID: "eq-4", Name: "Projector"},
		{ID: "eq-5", Name: "Projector"},
	}
	fx.equipment.requests = []models.EventEquipment{
		{ID: "req-1", EventID: "ev-1", EquipmentID: "eq-1", Quantity: 3},
		{ID: "req-2", EventID: "ex-1", EquipmentID: "eq-2", Quantity: 4},
	}
	// a confirmed commitment holds four of the five projectors all week, so
	// the pending request for three more can never fit anywhere
	fx.schedules.existing = []models.Schedule{{
		ID:        "sch-1",
		EventID:   "ex-1",
		VenueID:   "venue-2",
		OrgID:     "org-2",
		StartTime: weekStart,
		EndTime:   weekStart.AddDate(0, 0, 7),
	}}

	resp, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: testWeekStart}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Empty(t, resp.Entries)
	assert.Equal(t, []string{"ev-1"}, resp.Unscheduled)

	fx.equipment.mu.Lock()
	defer fx.equipment.mu.Unlock()
	require.NotEmpty(t, fx.equipment.queried)
	assert.Contains(t, fx.equipment.queried[0], "ev-1")
	assert.Contains(t, fx.equipment.queried[0], "ex-1")
}

func TestOptimizerServiceRejectsNonMondayWeekStart(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	_, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: "2025-01-07"}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOptimizerServiceRejectsBadHyperparameters(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	pop := 5
	_, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: testWeekStart, PopulationSize: &pop}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestOptimizerServiceCalendarLoadFailureAbortsWithReport(t *testing.T) {
	fx := newOptimizerFixture(t, nil)
	fx.svc.loadCalendar = func() (models.AcademicCalendar, error) {
		return models.AcademicCalendar{}, errors.New("missing file")
	}

	resp, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: testWeekStart}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Empty(t, resp.Entries)
	assert.Contains(t, resp.Report.Summary, "calendar")

	run := fx.runs.get(resp.RunID)
	require.NotNil(t, run)
	assert.Equal(t, models.OptimizationRunFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
}

func TestOptimizerServiceReuseServesCachedReport(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	weekKey := reportCacheKey(time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC))
	cached := dto.RunReport{Summary: "Proposed schedule for 2 events. Unscheduled: 0.", EventCount: 2}
	require.NoError(t, fx.cacheRepo.Set(context.Background(), weekKey, cached, time.Minute))

	resp, err := fx.svc.OptimizeWeek(context.Background(), dto.OptimizeWeekRequest{WeekStart: testWeekStart, Reuse: true}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, cached.Summary, resp.Report.Summary)
	assert.Empty(t, resp.ProposalID)
	assert.Empty(t, fx.runs.runs, "cached reuse must not record a run")
}

func TestOptimizerServiceAcceptProposal(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	fx := newOptimizerFixture(t, sqlxDB)
	mock.ExpectBegin()
	mock.ExpectCommit()

	start := time.Date(2025, time.January, 7, 9, 0, 0, 0, time.UTC)
	fx.svc.store.Save(optimizationProposal{
		ProposalID: "prop-1",
		RunID:      "run-1",
		WeekStart:  time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
		Entries: []optimizer.ScheduleEntry{
			{EventID: "ev-1", VenueID: "venue-1", OrgID: "org-1", StartTime: start, EndTime: start.Add(2 * time.Hour)},
		},
		Unscheduled: []string{"ev-2"},
		RequestedAt: time.Now().UTC(),
	})

	resp, err := fx.svc.AcceptProposal(context.Background(), dto.AcceptProposalRequest{ProposalID: "prop-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ScheduledCount)
	assert.Equal(t, []string{"ev-1"}, resp.ApprovedEvents)
	assert.Equal(t, []string{"ev-2"}, resp.NeedsAlternatives)

	require.Len(t, fx.schedules.created, 1)
	assert.Equal(t, "venue-1", fx.schedules.created[0].VenueID)
	assert.True(t, fx.schedules.created[0].IsOptimized)

	require.Len(t, fx.events.statusCalls, 2)
	assert.Equal(t, models.EventStatusApproved, fx.events.statusCalls[0].To)
	assert.Equal(t, models.EventStatusNeedsAlternatives, fx.events.statusCalls[1].To)

	// accepted proposals are single use
	_, err = fx.svc.AcceptProposal(context.Background(), dto.AcceptProposalRequest{ProposalID: "prop-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizerServiceAcceptProposalUnknown(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	_, err := fx.svc.AcceptProposal(context.Background(), dto.AcceptProposalRequest{ProposalID: "nope"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestOptimizerServiceGetRunNotFound(t *testing.T) {
	fx := newOptimizerFixture(t, nil)

	_, err := fx.svc.GetRun(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestOptimizerServiceEnqueueWeekProcessesAsync(t *testing.T) {
	fx := newOptimizerFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fx.svc.Start(ctx)
	defer fx.svc.Stop()

	resp, err := fx.svc.EnqueueWeek(ctx, dto.OptimizeWeekRequest{WeekStart: testWeekStart, Async: true}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.OptimizationRunQueued, resp.Status)

	require.Eventually(t, func() bool {
		run := fx.runs.get(resp.RunID)
		return run != nil && run.Status == models.OptimizationRunCompleted
	}, 5*time.Second, 20*time.Millisecond)

	run := fx.runs.get(resp.RunID)
	assert.Equal(t, 2, run.ScheduledCount)
}

func TestOptimizerServiceProposalExpiry(t *testing.T) {
	store := newProposalStore(10 * time.Millisecond)
	store.Save(optimizationProposal{ProposalID: "p1", RequestedAt: time.Now().Add(-time.Minute)})

	_, ok := store.Get("p1")
	assert.False(t, ok)
}
