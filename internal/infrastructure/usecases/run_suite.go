package usecases

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// DefaultPhaseOrder is the order phases run in when none are selected.
var DefaultPhaseOrder = []string{PhaseIndependent, PhaseReservoir, PhasePriority}

// SuiteSettings shapes the phases built from the catalogs.
type SuiteSettings struct {
	MaxAttempts       int
	SettleInterval    time.Duration
	ReservoirInterval time.Duration
	// Phases selects and orders phases by name. Empty means DefaultPhaseOrder.
	Phases []string
}

// BuildPhases turns the catalogs into the ordered phase list.
//
// The independent phase tests each rule alone against every test case and
// settles after creating each rule. The reservoir phase tests each reservoir
// rule alone against the baseline case and uses the long interval both to
// settle after each create and between attempts. The priority phase creates
// all priority rules together and checks every test case against the
// resolver's pick.
func BuildPhases(rules rule.Catalog, cases testcase.Catalog, s SuiteSettings) ([]Phase, error) {
	order := s.Phases
	if len(order) == 0 {
		order = DefaultPhaseOrder
	}

	short := RetryPolicy{MaxAttempts: s.MaxAttempts, Interval: s.SettleInterval}
	phases := make([]Phase, 0, len(order))
	for _, name := range order {
		switch name {
		case PhaseIndependent:
			phases = append(phases, Phase{
				Name:      PhaseIndependent,
				Rules:     rules.Independent,
				TestCases: cases.All,
				Retry:     short,
				Settle:    s.SettleInterval,
			})
		case PhaseReservoir:
			phases = append(phases, Phase{
				Name:      PhaseReservoir,
				Rules:     rules.Reservoir,
				TestCases: []testcase.TestCase{cases.Baseline},
				Retry:     RetryPolicy{MaxAttempts: s.MaxAttempts, Interval: s.ReservoirInterval},
				Settle:    s.ReservoirInterval,
			})
		case PhasePriority:
			phases = append(phases, Phase{
				Name:      PhasePriority,
				Rules:     rules.Priority,
				TestCases: cases.All,
				Retry:     short,
				Settle:    s.SettleInterval,
				Together:  true,
			})
		default:
			return nil, fmt.Errorf("unknown phase %q (want one of %v)", name, DefaultPhaseOrder)
		}
	}

	seen := make(map[string]bool, len(phases))
	for _, p := range phases {
		if seen[p.Name] {
			return nil, fmt.Errorf("phase %q selected twice", p.Name)
		}
		seen[p.Name] = true
	}
	return phases, nil
}

// RunSuiteUseCase runs a clean slate followed by each phase, stopping at the
// first failure.
type RunSuiteUseCase struct {
	cleanSlate *CleanSlateUseCase
	runPhase   *RunPhaseUseCase
	attempts   *journal.RingBuffer[journal.Attempt]
	clock      ports.Clock
	logger     ports.Logger
}

// NewRunSuiteUseCase creates a new use case.
func NewRunSuiteUseCase(
	cleanSlate *CleanSlateUseCase,
	runPhase *RunPhaseUseCase,
	attempts *journal.RingBuffer[journal.Attempt],
	clock ports.Clock,
	logger ports.Logger,
) *RunSuiteUseCase {
	return &RunSuiteUseCase{
		cleanSlate: cleanSlate,
		runPhase:   runPhase,
		attempts:   attempts,
		clock:      clock,
		logger:     logger,
	}
}

// Execute runs the suite. The returned Run is populated even on failure.
func (uc *RunSuiteUseCase) Execute(ctx context.Context, runID string, phases []Phase) (journal.Run, error) {
	run := journal.Run{ID: runID, Started: uc.clock.Now()}
	defer uc.summarize(&run)

	uc.logger.Info("run started", "phases", len(phases))

	if err := uc.cleanSlate.Execute(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrCleanSlate, err)
		uc.finish(&run, err)
		return run, err
	}

	for _, p := range phases {
		res, err := uc.runPhase.Execute(ctx, p)
		run.Phases = append(run.Phases, res)
		if err != nil {
			uc.finish(&run, err)
			return run, err
		}
	}

	uc.finish(&run, nil)
	return run, nil
}

func (uc *RunSuiteUseCase) finish(run *journal.Run, err error) {
	run.Finished = uc.clock.Now()
	run.Attempts = uc.attempts.Last(uc.attempts.Count())
	run.AttemptsDropped = uc.attempts.Total() - len(run.Attempts)
	run.Passed = err == nil
	if err != nil {
		run.Failure = err.Error()
	}
}

func (uc *RunSuiteUseCase) summarize(run *journal.Run) {
	s := journal.Summarize(run.Attempts)
	passed := slices.IndexFunc(run.Phases, func(p journal.PhaseResult) bool { return !p.Passed })
	if passed < 0 {
		passed = len(run.Phases)
	}

	args := []any{
		"passed", run.Passed,
		"phases_passed", passed,
		"attempts", s.Attempts,
		"checks_passed", s.Passed,
		"mismatches", s.Failed,
		"traffic_errors", s.Errors,
		"duration", run.Finished.Sub(run.Started),
	}
	if run.AttemptsDropped > 0 {
		args = append(args, "attempts_dropped", run.AttemptsDropped)
	}
	if run.Passed {
		uc.logger.Info("run finished", args...)
		return
	}
	uc.logger.Error("run aborted", append(args, "error", run.Failure)...)
}
