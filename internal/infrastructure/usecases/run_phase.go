package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// Phase names.
const (
	PhaseIndependent = "independent"
	PhaseReservoir   = "reservoir"
	PhasePriority    = "priority"
)

// Phase describes one stage of a run.
type Phase struct {
	Name      string
	Rules     []rule.Rule
	TestCases []testcase.TestCase
	Retry     RetryPolicy
	// Settle is slept after rules are created and before the first check.
	Settle time.Duration
	// Together creates every rule up front and checks each test case against
	// the rule the resolver picks. Otherwise rules are tested one at a time.
	Together bool
}

// RunPhaseUseCase drives one phase: create rules, settle, verify, clean up.
type RunPhaseUseCase struct {
	backend  ports.RuleBackend
	verifier *VerifyRuleUseCase
	resolver *match.Resolver
	clock    ports.Clock
	logger   ports.Logger
}

// NewRunPhaseUseCase creates a new use case.
func NewRunPhaseUseCase(
	backend ports.RuleBackend,
	verifier *VerifyRuleUseCase,
	resolver *match.Resolver,
	clock ports.Clock,
	logger ports.Logger,
) *RunPhaseUseCase {
	return &RunPhaseUseCase{
		backend:  backend,
		verifier: verifier,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// Execute runs the phase. On any failure the phase's rules are removed
// before the error is returned.
func (uc *RunPhaseUseCase) Execute(ctx context.Context, p Phase) (journal.PhaseResult, error) {
	started := uc.clock.Now()
	result := journal.PhaseResult{Name: p.Name, Rules: len(p.Rules)}

	uc.logger.Info("phase started", "phase", p.Name, "rules", len(p.Rules), "test_cases", len(p.TestCases))

	var err error
	if p.Together {
		err = uc.runTogether(ctx, p, &result)
	} else {
		err = uc.runEach(ctx, p, &result)
	}

	result.Duration = uc.clock.Now().Sub(started)
	if err != nil {
		result.Failure = err.Error()
		uc.logger.Error("phase failed", "phase", p.Name, "error", err)
		return result, err
	}

	result.Passed = true
	uc.logger.Info("phase passed", "phase", p.Name, "checks", result.Checks, "duration", result.Duration)
	return result, nil
}

func (uc *RunPhaseUseCase) runEach(ctx context.Context, p Phase, result *journal.PhaseResult) error {
	for _, r := range p.Rules {
		if err := uc.create(ctx, r); err != nil {
			uc.cleanup(ctx, p.Name, r)
			return err
		}
		if err := uc.settle(ctx, p); err != nil {
			uc.cleanup(ctx, p.Name, r)
			return err
		}

		for _, tc := range p.TestCases {
			if _, err := uc.verifier.Execute(ctx, p.Name, r, tc, p.Retry); err != nil {
				uc.cleanup(ctx, p.Name, r)
				return err
			}
			result.Checks++
		}

		uc.cleanup(ctx, p.Name, r)
	}
	return nil
}

func (uc *RunPhaseUseCase) runTogether(ctx context.Context, p Phase, result *journal.PhaseResult) error {
	defer uc.cleanup(ctx, p.Name, p.Rules...)

	for _, r := range p.Rules {
		if err := uc.create(ctx, r); err != nil {
			return err
		}
	}
	if err := uc.settle(ctx, p); err != nil {
		return err
	}

	for _, tc := range p.TestCases {
		governing, err := uc.resolver.Resolve(tc, p.Rules)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", tc.Name, err)
		}
		uc.logger.Debug("governing rule resolved", "phase", p.Name, "test_case", tc.Name, "rule", governing.Name)

		if _, err := uc.verifier.Execute(ctx, p.Name, governing, tc, p.Retry); err != nil {
			return err
		}
		result.Checks++
	}
	return nil
}

func (uc *RunPhaseUseCase) settle(ctx context.Context, p Phase) error {
	if p.Settle <= 0 {
		return nil
	}
	return uc.clock.SleepContext(ctx, p.Settle)
}

// create registers r. Default already lives on the backend and is skipped.
func (uc *RunPhaseUseCase) create(ctx context.Context, r rule.Rule) error {
	if r.Name.Immutable() {
		return nil
	}
	if err := uc.backend.CreateRule(ctx, r); err != nil {
		return fmt.Errorf("create rule %s: %w", r.Name, err)
	}
	uc.logger.Debug("rule created", "rule", r.Name)
	return nil
}

// cleanup deletes rules best-effort. It outlives ctx cancellation so an
// interrupted run still leaves the backend clean.
func (uc *RunPhaseUseCase) cleanup(ctx context.Context, phase string, rules ...rule.Rule) {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, r := range rules {
		if r.Name.Immutable() {
			continue
		}
		if err := uc.backend.DeleteRule(ctx, r.Name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		uc.logger.Warn("rule cleanup failed", "phase", phase, "error", err)
	}
}
