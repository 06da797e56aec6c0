package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/uvems/uvems-api/internal/dto"
	"github.com/uvems/uvems-api/internal/models"
	"github.com/uvems/uvems-api/internal/optimizer"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
	"github.com/uvems/uvems-api/pkg/jobs"
)

type pendingEventLister interface {
	ListPendingInWindow(ctx context.Context, start, end time.Time) ([]models.Event, error)
	UpdateStatusWhere(ctx context.Context, exec sqlx.ExtContext, ids []string, from, to models.EventStatus) (int64, error)
}

type venueReader interface {
	ListAll(ctx context.Context) ([]models.Venue, error)
}

type equipmentReader interface {
	ListAll(ctx context.Context) ([]models.Equipment, error)
	ListRequestsByEventIDs(ctx context.Context, eventIDs []string) ([]models.EventEquipment, error)
}

type preferenceReader interface {
	ListByEventIDs(ctx context.Context, eventIDs []string) ([]models.Preference, error)
}

type scheduleFeeder interface {
	ListOverlapping(ctx context.Context, start, end time.Time) ([]models.Schedule, error)
	BulkCreateWithTx(ctx context.Context, tx sqlx.ExtContext, schedules []*models.Schedule) error
}

type runRecorder interface {
	Create(ctx context.Context, run *models.OptimizationRun) error
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	Complete(ctx context.Context, run *models.OptimizationRun) error
	FindByID(ctx context.Context, id string) (*models.OptimizationRun, error)
	List(ctx context.Context, filter models.OptimizationRunFilter) ([]models.OptimizationRun, int, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

const runJobType = "optimize_week"

type runJobPayload struct {
	RunID       string
	Request     dto.OptimizeWeekRequest
	RequestedBy string
}

// OptimizerServiceConfig governs optimizer behaviour.
type OptimizerServiceConfig struct {
	CalendarPath   string
	AcademicYear   string
	Timezone       string
	Params         optimizer.Params
	ProposalTTL    time.Duration
	RunTimeout     time.Duration
	ReportCacheTTL time.Duration
	QueueWorkers   int
	QueueBuffer    int
}

// OptimizerService assembles week data, runs the genetic search and persists
// accepted proposals.
type OptimizerService struct {
	events      pendingEventLister
	venues      venueReader
	equipment   equipmentReader
	preferences preferenceReader
	schedules   scheduleFeeder
	runs        runRecorder
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	academicYear   string
	location       *time.Location
	defaults       optimizer.Params
	runTimeout     time.Duration
	reportCacheTTL time.Duration

	// swapped in tests
	loadCalendar func() (models.AcademicCalendar, error)
	seedFn       func() int64

	store *proposalStore
	queue *jobs.Queue
}

// NewOptimizerService wires optimizer dependencies. The timezone name must
// resolve; everything else is validated per run.
func NewOptimizerService(
	events pendingEventLister,
	venues venueReader,
	equipment equipmentReader,
	preferences preferenceReader,
	schedules scheduleFeeder,
	runs runRecorder,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg OptimizerServiceConfig,
) (*OptimizerService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	defaults := cfg.Params
	if defaults.PopulationSize == 0 && defaults.MaxGenerations == 0 {
		defaults = optimizer.DefaultParams()
	}
	if defaults.Workers == 0 {
		defaults.Workers = cfg.Params.Workers
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}

	s := &OptimizerService{
		events:         events,
		venues:         venues,
		equipment:      equipment,
		preferences:    preferences,
		schedules:      schedules,
		runs:           runs,
		tx:             tx,
		cache:          cache,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
		academicYear:   cfg.AcademicYear,
		location:       loc,
		defaults:       defaults,
		runTimeout:     cfg.RunTimeout,
		reportCacheTTL: cfg.ReportCacheTTL,
		seedFn:         func() int64 { return time.Now().UnixNano() },
		store:          newProposalStore(cfg.ProposalTTL),
	}
	path := cfg.CalendarPath
	s.loadCalendar = func() (models.AcademicCalendar, error) {
		return loadCalendarFile(path)
	}
	s.queue = jobs.NewQueue(runJobType, s.processRunJob, jobs.QueueConfig{
		Workers:    cfg.QueueWorkers,
		BufferSize: cfg.QueueBuffer,
		Logger:     logger,
	})
	return s, nil
}

// Start launches the async run workers.
func (s *OptimizerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the async run workers.
func (s *OptimizerService) Stop() {
	s.queue.Stop()
}

func loadCalendarFile(path string) (models.AcademicCalendar, error) {
	var calendar models.AcademicCalendar
	raw, err := os.ReadFile(path)
	if err != nil {
		return calendar, appErrors.Wrap(err, appErrors.ErrCalendarLoad.Code, appErrors.ErrCalendarLoad.Status, "read calendar file")
	}
	if err := json.Unmarshal(raw, &calendar); err != nil {
		return calendar, appErrors.Wrap(err, appErrors.ErrCalendarLoad.Code, appErrors.ErrCalendarLoad.Status, "parse calendar file")
	}
	return calendar, nil
}

// OptimizeWeek runs the optimizer synchronously and returns a proposal
// awaiting acceptance. With Reuse set, a cached report for the same week is
// served without a new search.
func (s *OptimizerService) OptimizeWeek(ctx context.Context, req dto.OptimizeWeekRequest, requestedBy string) (*dto.OptimizationProposalResponse, error) {
	weekStart, params, weights, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	if req.Reuse {
		var cached dto.RunReport
		if hit, _ := s.cache.Get(ctx, reportCacheKey(weekStart), &cached); hit {
			return &dto.OptimizationProposalResponse{
				Report:      cached,
				Entries:     cached.Entries,
				Unscheduled: unscheduledIDs(cached.Unscheduled),
			}, nil
		}
	}

	run := &models.OptimizationRun{
		ID:          uuid.NewString(),
		WeekStart:   weekStart.UTC(),
		WeekEnd:     weekStart.AddDate(0, 0, 7).UTC(),
		Status:      models.OptimizationRunQueued,
		RequestedBy: requestedBy,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record optimization run")
	}
	if err := s.runs.MarkRunning(ctx, run.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark run running", zap.String("run_id", run.ID), zap.Error(err))
	}
	return s.executeRun(ctx, run, weekStart, params, weights)
}

// EnqueueWeek queues an asynchronous optimization run and returns its ID.
func (s *OptimizerService) EnqueueWeek(ctx context.Context, req dto.OptimizeWeekRequest, requestedBy string) (*dto.OptimizationRunQueuedResponse, error) {
	weekStart, _, _, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	run := &models.OptimizationRun{
		ID:          uuid.NewString(),
		WeekStart:   weekStart.UTC(),
		WeekEnd:     weekStart.AddDate(0, 0, 7).UTC(),
		Status:      models.OptimizationRunQueued,
		RequestedBy: requestedBy,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record optimization run")
	}

	job := jobs.Job{
		ID:      run.ID,
		Type:    runJobType,
		Payload: runJobPayload{RunID: run.ID, Request: req, RequestedBy: requestedBy},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.failRun(context.WithoutCancel(ctx), run, fmt.Errorf("enqueue run: %w", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue optimization run")
	}
	return &dto.OptimizationRunQueuedResponse{RunID: run.ID, Status: models.OptimizationRunQueued}, nil
}

func (s *OptimizerService) processRunJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(runJobPayload)
	if !ok {
		s.logger.Error("unexpected job payload", zap.String("job_id", job.ID))
		return nil
	}
	run, err := s.runs.FindByID(ctx, payload.RunID)
	if err != nil {
		s.logger.Error("queued run not found", zap.String("run_id", payload.RunID), zap.Error(err))
		return nil
	}
	if err := s.runs.MarkRunning(ctx, run.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("queued run no longer runnable", zap.String("run_id", run.ID), zap.Error(err))
		return nil
	}

	weekStart, params, weights, err := s.prepare(payload.Request)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil
	}
	if _, err := s.executeRun(ctx, run, weekStart, params, weights); err != nil {
		s.logger.Error("async optimization run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	return nil
}

// prepare validates the request and resolves hyperparameters against defaults.
func (s *OptimizerService) prepare(req dto.OptimizeWeekRequest) (time.Time, optimizer.Params, optimizer.Weights, error) {
	var zero time.Time
	if err := s.validator.Struct(req); err != nil {
		return zero, optimizer.Params{}, optimizer.Weights{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	weekStart, err := time.ParseInLocation("2006-01-02", req.WeekStart, s.location)
	if err != nil {
		return zero, optimizer.Params{}, optimizer.Weights{}, appErrors.Clone(appErrors.ErrValidation, "weekStart must be a YYYY-MM-DD date")
	}
	if weekStart.Weekday() != time.Monday {
		return zero, optimizer.Params{}, optimizer.Weights{}, appErrors.Clone(appErrors.ErrValidation, "weekStart must be a Monday")
	}

	params := s.defaults
	if req.PopulationSize != nil {
		params.PopulationSize = *req.PopulationSize
	}
	if req.MaxGenerations != nil {
		params.MaxGenerations = *req.MaxGenerations
	}
	if req.MutationRate != nil {
		params.MutationRate = *req.MutationRate
	}
	if req.CrossoverRate != nil {
		params.CrossoverRate = *req.CrossoverRate
	}
	if req.TournamentSize != nil {
		params.TournamentSize = *req.TournamentSize
	}
	if err := params.Validate(); err != nil {
		return zero, optimizer.Params{}, optimizer.Weights{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	weights := optimizer.DefaultWeights()
	if req.Weights != nil {
		applyWeightOverrides(&weights, req.Weights)
	}
	return weekStart, params, weights, nil
}

func applyWeightOverrides(w *optimizer.Weights, in *dto.FitnessWeights) {
	if in.Base > 0 {
		w.Base = in.Base
	}
	if in.VenuePreferenceMatch > 0 {
		w.VenueMatch = in.VenuePreferenceMatch
	}
	if in.DatePreferenceMatch > 0 {
		w.DateMatch = in.DatePreferenceMatch
	}
	if in.TimeSlotPreferenceMatch > 0 {
		w.TimeSlotMatch = in.TimeSlotPreferenceMatch
	}
	if in.HecticWeekBonus > 0 {
		w.HecticBonus = in.HecticWeekBonus
	}
	if in.CapacityPenaltyFactor > 0 {
		w.CapacityPenalty = in.CapacityPenaltyFactor
	}
	if in.HardViolationPenalty > 0 {
		w.ViolationPenalty = in.HardViolationPenalty
	}
}

// executeRun performs one full optimization for an already recorded run.
// Search-phase failures never return an error; they surface in the report
// and the run record instead.
func (s *OptimizerService) executeRun(ctx context.Context, run *models.OptimizationRun, weekStart time.Time, params optimizer.Params, weights optimizer.Weights) (*dto.OptimizationProposalResponse, error) {
	started := time.Now()
	weekEnd := weekStart.AddDate(0, 0, 7)

	calendar, err := s.loadCalendar()
	if err != nil {
		s.logger.Error("academic calendar load failed", zap.Error(err))
		return s.degenerateResult(ctx, run, started, "The academic calendar could not be loaded. No events were scheduled."), nil
	}

	constraints, err := optimizer.CompileWeekConstraints(optimizer.CompileInput{
		Calendar:     calendar,
		AcademicYear: s.academicYear,
		WeekStart:    weekStart,
		WeekEnd:      weekEnd,
		Location:     s.location,
	}, s.logger)
	if err != nil {
		s.logger.Error("constraint compile failed", zap.Error(err))
		return s.degenerateResult(ctx, run, started, "Weekly constraints could not be compiled. No events were scheduled."), nil
	}

	rc, err := s.assembleWeekData(ctx, weekStart, weekEnd, constraints)
	if err != nil {
		s.failRun(ctx, run, err)
		s.observeRun("failed", started, params, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assemble week data")
	}

	engine, err := optimizer.NewEngine(params, weights, s.seedFn(), s.logger)
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	result := engine.Run(runCtx, rc)

	report := s.buildRunReport(weekStart, weekEnd, rc, result)
	proposalID := uuid.NewString()
	expiresAt := time.Now().UTC().Add(s.store.ttl)
	s.store.Save(optimizationProposal{
		ProposalID:  proposalID,
		RunID:       run.ID,
		WeekStart:   weekStart.UTC(),
		Entries:     result.Entries,
		Unscheduled: result.UnscheduledIDs,
		RequestedAt: time.Now().UTC(),
	})

	s.completeRun(ctx, run, rc, result, report)
	s.cacheReport(ctx, weekStart, report)
	s.observeRun("completed", started, params, report.Violations)

	return &dto.OptimizationProposalResponse{
		ProposalID:  proposalID,
		RunID:       run.ID,
		Entries:     report.Entries,
		Unscheduled: result.UnscheduledIDs,
		Report:      report,
		ExpiresAt:   expiresAt,
	}, nil
}

// degenerateResult records a failed pre-search phase and hands the caller an
// empty-but-well-formed proposal, abort-with-report style.
func (s *OptimizerService) degenerateResult(ctx context.Context, run *models.OptimizationRun, started time.Time, summary string) *dto.OptimizationProposalResponse {
	report := dto.RunReport{
		WeekStart: run.WeekStart,
		WeekEnd:   run.WeekEnd,
		Summary:   summary,
	}
	s.failRun(ctx, run, errors.New(summary))
	s.observeRun("aborted", started, optimizer.Params{}, 0)
	return &dto.OptimizationProposalResponse{RunID: run.ID, Report: report}
}

func (s *OptimizerService) assembleWeekData(ctx context.Context, weekStart, weekEnd time.Time, constraints *optimizer.WeekConstraints) (*optimizer.RunContext, error) {
	events, err := s.events.ListPendingInWindow(ctx, weekStart.UTC(), weekEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("load pending events: %w", err)
	}
	venues, err := s.venues.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	inventory, err := s.equipment.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	existing, err := s.schedules.ListOverlapping(ctx, weekStart.UTC(), weekEnd.UTC())
	if err != nil {
		return nil, fmt.Errorf("load existing schedules: %w", err)
	}

	eventIDs := make([]string, 0, len(events))
	for i := range events {
		events[i].ReqStart = utcPtr(events[i].ReqStart)
		events[i].ReqEnd = utcPtr(events[i].ReqEnd)
		eventIDs = append(eventIDs, events[i].ID)
	}

	// Existing commitments hold equipment too, so their requests must be
	// part of the aggregate demand the fitness check sees.
	requestIDs := append([]string(nil), eventIDs...)
	seen := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		seen[id] = true
	}
	for i := range existing {
		existing[i].StartTime = existing[i].StartTime.UTC()
		existing[i].EndTime = existing[i].EndTime.UTC()
		if id := existing[i].EventID; id != "" && !seen[id] {
			seen[id] = true
			requestIDs = append(requestIDs, id)
		}
	}

	requests, err := s.equipment.ListRequestsByEventIDs(ctx, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("load equipment requests: %w", err)
	}
	preferences, err := s.preferences.ListByEventIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	counts := make(map[string]int, len(inventory))
	names := make(map[string]string, len(inventory))
	for _, item := range inventory {
		counts[item.Name]++
		names[item.ID] = item.Name
	}

	requestsByEvent := make(map[string][]models.EventEquipment)
	for _, req := range requests {
		requestsByEvent[req.EventID] = append(requestsByEvent[req.EventID], req)
	}
	prefsByEvent := make(map[string][]models.Preference)
	for i := range preferences {
		p := preferences[i]
		p.PrefDate = utcPtr(p.PrefDate)
		p.PrefSlotStart = utcPtr(p.PrefSlotStart)
		p.PrefSlotEnd = utcPtr(p.PrefSlotEnd)
		prefsByEvent[p.EventID] = append(prefsByEvent[p.EventID], p)
	}

	return optimizer.NewRunContext(optimizer.RunContextInput{
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		Location:          s.location,
		Events:            events,
		Existing:          existing,
		Venues:            venues,
		EquipmentCounts:   counts,
		EquipmentNames:    names,
		EquipmentRequests: requestsByEvent,
		Preferences:       prefsByEvent,
		Constraints:       constraints,
	}), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *OptimizerService) buildRunReport(weekStart, weekEnd time.Time, rc *optimizer.RunContext, result *optimizer.Result) dto.RunReport {
	core := result.Report
	report := dto.RunReport{
		WeekStart:        weekStart.UTC(),
		WeekEnd:          weekEnd.UTC(),
		EventCount:       core.EventCount,
		PopulationSize:   core.Params.PopulationSize,
		MaxGenerations:   core.Params.MaxGenerations,
		MutationRate:     core.Params.MutationRate,
		CrossoverRate:    core.Params.CrossoverRate,
		TournamentSize:   core.Params.TournamentSize,
		BestFitness:      core.BestFitness,
		Violations:       core.Violations,
		HecticWeek:       core.HecticWeek,
		BlockedIntervals: core.GeneralConstraints,
		VenueBlockages:   core.VenueBlockages,
		Summary:          core.Summary,
	}
	for _, entry := range result.Entries {
		proposed := dto.ProposedEntry{
			EventID:   entry.EventID,
			VenueID:   entry.VenueID,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
		}
		if ev, ok := rc.EventsByID[entry.EventID]; ok {
			proposed.EventName = ev.Name
		}
		if v, ok := rc.Venues[entry.VenueID]; ok {
			proposed.VenueName = v.Name
		}
		report.Entries = append(report.Entries, proposed)
	}
	for _, id := range result.UnscheduledIDs {
		finding := dto.UnscheduledFinding{EventID: id, Reasons: core.Unscheduled[id]}
		if ev, ok := rc.EventsByID[id]; ok {
			finding.EventName = ev.Name
		}
		report.Unscheduled = append(report.Unscheduled, finding)
	}
	return report
}

func (s *OptimizerService) completeRun(ctx context.Context, run *models.OptimizationRun, rc *optimizer.RunContext, result *optimizer.Result, report dto.RunReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		s.logger.Error("failed to serialise run report", zap.String("run_id", run.ID), zap.Error(err))
		raw = json.RawMessage(`{}`)
	}
	finished := time.Now().UTC()
	run.Status = models.OptimizationRunCompleted
	run.EventCount = len(rc.Events)
	run.ScheduledCount = len(result.Entries)
	run.BestFitness = report.BestFitness
	run.Violations = report.Violations
	run.Report = raw
	run.FinishedAt = &finished
	if err := s.runs.Complete(ctx, run); err != nil {
		s.logger.Error("failed to persist run outcome", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *OptimizerService) failRun(ctx context.Context, run *models.OptimizationRun, cause error) {
	finished := time.Now().UTC()
	msg := cause.Error()
	run.Status = models.OptimizationRunFailed
	run.ErrorMessage = &msg
	run.FinishedAt = &finished
	if err := s.runs.Complete(ctx, run); err != nil {
		s.logger.Error("failed to persist run failure", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (s *OptimizerService) cacheReport(ctx context.Context, weekStart time.Time, report dto.RunReport) {
	if err := s.cache.Set(ctx, reportCacheKey(weekStart), report, s.reportCacheTTL); err != nil {
		s.logger.Warn("failed to cache run report", zap.Error(err))
	}
}

func (s *OptimizerService) observeRun(outcome string, started time.Time, params optimizer.Params, violations int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOptimizationRun(outcome, time.Since(started), params.MaxGenerations, violations)
}

func reportCacheKey(weekStart time.Time) string {
	return "optimizer:report:" + weekStart.Format("2006-01-02")
}

func unscheduledIDs(findings []dto.UnscheduledFinding) []string {
	if len(findings) == 0 {
		return nil
	}
	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.EventID)
	}
	return ids
}

// AcceptProposal persists a previously returned proposal: schedule rows are
// inserted and event statuses transition in a single transaction. Scheduled
// events become approved; the rest are flagged for alternatives.
func (s *OptimizerService) AcceptProposal(ctx context.Context, req dto.AcceptProposalRequest) (*dto.AcceptProposalResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	defer func() { _ = tx.Rollback() }()

	schedules := make([]*models.Schedule, 0, len(proposal.Entries))
	approved := make([]string, 0, len(proposal.Entries))
	for _, entry := range proposal.Entries {
		schedules = append(schedules, &models.Schedule{
			EventID:     entry.EventID,
			VenueID:     entry.VenueID,
			OrgID:       entry.OrgID,
			StartTime:   entry.StartTime,
			EndTime:     entry.EndTime,
			IsOptimized: true,
		})
		approved = append(approved, entry.EventID)
	}

	if err := s.schedules.BulkCreateWithTx(ctx, tx, schedules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedules")
	}
	if _, err := s.events.UpdateStatusWhere(ctx, tx, approved, models.EventStatusPending, models.EventStatusApproved); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve events")
	}
	if _, err := s.events.UpdateStatusWhere(ctx, tx, proposal.Unscheduled, models.EventStatusPending, models.EventStatusNeedsAlternatives); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag unscheduled events")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit proposal")
	}

	s.store.Delete(req.ProposalID)
	if err := s.cache.Invalidate(ctx, reportCacheKey(proposal.WeekStart)); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}

	return &dto.AcceptProposalResponse{
		ScheduledCount:    len(schedules),
		ApprovedEvents:    approved,
		NeedsAlternatives: proposal.Unscheduled,
	}, nil
}

// GetRun loads a stored run record.
func (s *OptimizerService) GetRun(ctx context.Context, id string) (*models.OptimizationRun, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "optimization run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load optimization run")
	}
	return run, nil
}

// ListRuns pages through stored run records, newest first.
func (s *OptimizerService) ListRuns(ctx context.Context, query dto.OptimizationRunQuery) ([]models.OptimizationRun, *models.Pagination, error) {
	filter := models.OptimizationRunFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.OptimizationRunStatus(query.Status)
		filter.Status = &status
	}
	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list optimization runs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// --- Proposal cache ---

type optimizationProposal struct {
	ProposalID  string
	RunID       string
	WeekStart   time.Time
	Entries     []optimizer.ScheduleEntry
	Unscheduled []string
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]optimizationProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]optimizationProposal),
	}
}

func (s *proposalStore) Save(proposal optimizationProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (optimizationProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return optimizationProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return optimizationProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
