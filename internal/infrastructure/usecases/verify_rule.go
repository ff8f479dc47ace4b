package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/conformance"
	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/domain/verify"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// RetryPolicy bounds how often a check is repeated and how long to wait
// between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// CheckResult is the outcome of a (rule, test case) check.
type CheckResult struct {
	Attempts int
	Verdict  verify.Verdict
}

// VerifyRuleUseCase sends traffic for one test case and checks the sampled
// count against one rule, retrying per policy.
type VerifyRuleUseCase struct {
	target   ports.TrafficTarget
	clock    ports.Clock
	logger   ports.Logger
	attempts *journal.RingBuffer[journal.Attempt]
	trials   int
}

// NewVerifyRuleUseCase creates a new use case.
func NewVerifyRuleUseCase(
	target ports.TrafficTarget,
	clock ports.Clock,
	logger ports.Logger,
	attempts *journal.RingBuffer[journal.Attempt],
	trials int,
) *VerifyRuleUseCase {
	return &VerifyRuleUseCase{
		target:   target,
		clock:    clock,
		logger:   logger,
		attempts: attempts,
		trials:   trials,
	}
}

// Execute runs up to policy.MaxAttempts attempts, sleeping policy.Interval
// between them. Traffic errors and out-of-band counts each consume an
// attempt. It returns a *conformance.Error once attempts run out, or the
// context error if cancelled while waiting.
func (uc *VerifyRuleUseCase) Execute(ctx context.Context, phase string, r rule.Rule, tc testcase.TestCase, policy RetryPolicy) (CheckResult, error) {
	maxAttempts := max(policy.MaxAttempts, 1)

	var (
		result CheckResult
		last   error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		entry := journal.Attempt{
			Timestamp: uc.clock.Now(),
			Phase:     phase,
			Rule:      string(r.Name),
			TestCase:  tc.Name,
			Number:    attempt,
		}

		observed, err := uc.target.Send(ctx, tc, uc.trials)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			last = err
			entry.Error = err.Error()
			uc.logger.Warn("traffic call failed", "phase", phase, "rule", r.Name, "test_case", tc.Name, "attempt", attempt, "error", err)
		} else {
			v := verify.Verify(observed, uc.trials, r, tc)
			result.Verdict = v
			entry.Observed, entry.Expected, entry.Tolerance, entry.Passed = v.Observed, v.Expected, v.Tolerance, v.Passed

			if v.Passed {
				uc.attempts.Add(entry)
				uc.logger.Info("check passed", "phase", phase, "rule", r.Name, "test_case", tc.Name,
					"observed", v.Observed, "expected", v.Expected, "tolerance", v.Tolerance, "attempt", attempt)
				return result, nil
			}

			last = fmt.Errorf("%w: observed %d, expected %d±%d", conformance.ErrRateMismatch, v.Observed, v.Expected, v.Tolerance)
			uc.logger.Warn("check failed", "phase", phase, "rule", r.Name, "test_case", tc.Name,
				"observed", v.Observed, "expected", v.Expected, "tolerance", v.Tolerance,
				"fallback", v.Fallback, "attempt", attempt)
		}
		uc.attempts.Add(entry)

		if attempt < maxAttempts {
			if err := uc.clock.SleepContext(ctx, policy.Interval); err != nil {
				return result, err
			}
		}
	}

	return result, &conformance.Error{
		Phase:    phase,
		Rule:     string(r.Name),
		TestCase: tc.Name,
		Attempts: result.Attempts,
		Err:      last,
	}
}
