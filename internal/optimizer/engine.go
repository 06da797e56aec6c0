package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Params are the genetic algorithm hyperparameters for one run.
type Params struct {
	PopulationSize int
	MaxGenerations int
	MutationRate   float64
	CrossoverRate  float64
	TournamentSize int
	Workers        int
}

// DefaultParams returns the standard search configuration.
func DefaultParams() Params {
	return Params{
		PopulationSize: 50,
		MaxGenerations: 50,
		MutationRate:   0.15,
		CrossoverRate:  0.8,
		TournamentSize: 5,
	}
}

// Validate enforces the accepted hyperparameter ranges.
func (p Params) Validate() error {
	if p.PopulationSize <= 10 {
		return fmt.Errorf("population size must be greater than 10, got %d", p.PopulationSize)
	}
	if p.MaxGenerations <= 0 {
		return fmt.Errorf("max generations must be positive, got %d", p.MaxGenerations)
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be within [0,1], got %v", p.MutationRate)
	}
	if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be within [0,1], got %v", p.CrossoverRate)
	}
	if p.TournamentSize <= 1 {
		return fmt.Errorf("tournament size must be greater than 1, got %d", p.TournamentSize)
	}
	return nil
}

// Result is the engine's sole output: confirmed entries, the events left
// unscheduled, and the run report.
type Result struct {
	Entries        []ScheduleEntry
	UnscheduledIDs []string
	Report         *Report
}

// Engine runs the generational search. Fitness evaluation is fanned out
// over a worker pool each generation; selection and breeding stay
// single-threaded on the engine's seeded source.
type Engine struct {
	params  Params
	weights Weights
	rng     *rand.Rand
	logger  *zap.Logger
}

// NewEngine validates the hyperparameters and prepares a seeded engine.
func NewEngine(params Params, weights Weights, seed int64, logger *zap.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		params:  params,
		weights: weights,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
	}, nil
}

// Run executes the full search against an assembled run context. Failures
// never surface as errors; they are reported through Result.Report. On
// context cancellation the best candidate found so far is still returned.
func (e *Engine) Run(ctx context.Context, rc *RunContext) *Result {
	report := newReport(rc, e.params)
	result := &Result{Report: report}

	if len(rc.Events) == 0 {
		report.Summary = "No pending events for this week."
		return result
	}

	population := NewPopulation(e.rng, rc, e.params.PopulationSize)
	if len(population) == 0 {
		report.Summary = "Failed to initialize population."
		result.UnscheduledIDs = append([]string(nil), rc.EventIDs...)
		report.Unscheduled = Analyze(rc, result.UnscheduledIDs)
		return result
	}

	var best Chromosome
	bestFit := FitnessResult{Score: math.Inf(-1), Violations: math.MaxInt}

	for gen := 0; gen < e.params.MaxGenerations; gen++ {
		select {
		case <-ctx.Done():
			e.logger.Sugar().Warnw("optimization cancelled", "generation", gen, "reason", ctx.Err())
			report.Summary = fmt.Sprintf("Run cancelled after %d generations; returning best candidate so far.", gen)
			return e.finish(rc, best, bestFit, report, result)
		default:
		}

		fitness := e.evaluateAll(population, rc)
		genBest := 0
		for i := 1; i < len(fitness); i++ {
			if fitness[i].Score > fitness[genBest].Score {
				genBest = i
			}
		}
		if fitness[genBest].Better(bestFit) {
			best = population[genBest].Clone()
			bestFit = fitness[genBest]
		}
		e.logger.Sugar().Debugw("generation complete",
			"generation", gen+1,
			"best_fitness", bestFit.Score,
			"best_violations", bestFit.Violations,
		)

		next := make([]Chromosome, 0, e.params.PopulationSize)
		if best != nil {
			next = append(next, best.Clone())
		}
		for len(next) < e.params.PopulationSize {
			parent1 := Tournament(e.rng, population, fitness, e.params.TournamentSize)
			parent2 := Tournament(e.rng, population, fitness, e.params.TournamentSize)
			child1, child2 := Crossover(e.rng, parent1, parent2, rc.EventIDs, e.params.CrossoverRate)
			next = append(next, Mutate(e.rng, child1, rc, e.params.MutationRate))
			if len(next) < e.params.PopulationSize {
				next = append(next, Mutate(e.rng, child2, rc, e.params.MutationRate))
			}
		}
		population = next
	}

	return e.finish(rc, best, bestFit, report, result)
}

// finish re-verifies the best candidate, splits it into entries and
// unscheduled ids, and runs the post-mortem for anything unplaced. A
// verified candidate with remaining hard violations is discarded whole.
func (e *Engine) finish(rc *RunContext, best Chromosome, bestFit FitnessResult, report *Report, result *Result) *Result {
	if best == nil {
		if report.Summary == "" {
			report.Summary = "Search did not produce a candidate schedule."
		}
		result.UnscheduledIDs = append([]string(nil), rc.EventIDs...)
		report.Unscheduled = Analyze(rc, result.UnscheduledIDs)
		return result
	}

	verified := Evaluate(best, rc, e.weights)
	report.BestFitness = verified.Score
	report.Violations = verified.Violations

	if verified.Violations > 0 {
		if report.Summary == "" {
			report.Summary = fmt.Sprintf("Best candidate still has %d hard violations. All events treated as unscheduled.", verified.Violations)
		}
		result.UnscheduledIDs = append([]string(nil), rc.EventIDs...)
		report.Unscheduled = Analyze(rc, result.UnscheduledIDs)
		return result
	}

	for _, id := range rc.EventIDs {
		slot := best[id]
		if slot == nil {
			result.UnscheduledIDs = append(result.UnscheduledIDs, id)
			continue
		}
		ev := rc.EventsByID[id]
		result.Entries = append(result.Entries, ScheduleEntry{
			EventID:   id,
			VenueID:   slot.VenueID,
			OrgID:     ev.OrgID,
			StartTime: slot.Start,
			EndTime:   slot.End,
		})
	}

	if report.Summary == "" {
		report.Summary = fmt.Sprintf("Proposed schedule for %d events. Unscheduled: %d.", len(result.Entries), len(result.UnscheduledIDs))
	}
	if len(result.UnscheduledIDs) > 0 {
		report.Unscheduled = Analyze(rc, result.UnscheduledIDs)
	}
	return result
}

// evaluateAll scores the population on a bounded worker pool. Evaluation
// is a pure function of (chromosome, context, weights), so workers share
// the context without locking.
func (e *Engine) evaluateAll(population []Chromosome, rc *RunContext) []FitnessResult {
	results := make([]FitnessResult, len(population))
	workers := e.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(population) {
		workers = len(population)
	}
	if workers <= 1 {
		for i, chrom := range population {
			results[i] = Evaluate(chrom, rc, e.weights)
		}
		return results
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = Evaluate(population[i], rc, e.weights)
			}
		}()
	}
	for i := range population {
		indices <- i
	}
	close(indices)
	wg.Wait()
	return results
}
