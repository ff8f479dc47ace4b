package usecases_test

import (
	"slices"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/domain/verify"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
	"github.com/sophialabs/samplingconformance/internal/testutil"
)

const trials = 1000

var (
	settle    = time.Second
	reservoir = 20 * time.Second
)

type harness struct {
	backend  *testutil.FakeBackend
	target   *testutil.ScriptedTarget
	clock    *testutil.RecordingClock
	attempts *journal.RingBuffer[journal.Attempt]
	verifier *usecases.VerifyRuleUseCase
	phase    *usecases.RunPhaseUseCase
	suite    *usecases.RunSuiteUseCase
}

func newHarness(target *testutil.ScriptedTarget, backend *testutil.FakeBackend) *harness {
	return newHarnessWithJournal(target, backend, 4096)
}

func newHarnessWithJournal(target *testutil.ScriptedTarget, backend *testutil.FakeBackend, size int) *harness {
	h := &harness{
		backend:  backend,
		target:   target,
		clock:    &testutil.RecordingClock{T: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		attempts: journal.NewRingBuffer[journal.Attempt](size),
	}
	logger := &testutil.NoopLogger{}
	h.verifier = usecases.NewVerifyRuleUseCase(target, h.clock, logger, h.attempts, trials)
	h.phase = usecases.NewRunPhaseUseCase(backend, h.verifier, match.NewResolver(), h.clock, logger)
	h.suite = usecases.NewRunSuiteUseCase(
		usecases.NewCleanSlateUseCase(backend, logger),
		h.phase,
		h.attempts,
		h.clock,
		logger,
	)
	return h
}

// conformingTarget answers every call with the exact count the active rules
// should produce, as a well-behaved decision service would.
func conformingTarget(backend *testutil.FakeBackend) *testutil.ScriptedTarget {
	catalog := rule.NewCatalog()
	return &testutil.ScriptedTarget{
		Respond: func(tc testcase.TestCase, n int) testutil.Reply {
			var active []rule.Rule
			for _, r := range catalog.All() {
				if slices.Contains(backend.Rules(), string(r.Name)) && !r.Name.Immutable() {
					active = append(active, r)
				}
			}

			var governing rule.Rule
			switch len(active) {
			case 0:
				governing, _ = catalog.Lookup(rule.Default)
			case 1:
				governing = active[0]
			default:
				governing, _ = match.NewResolver().Resolve(tc, catalog.Priority)
			}

			expected, _ := verify.ExpectedCount(n, governing, tc)
			return testutil.Reply{Count: expected}
		},
	}
}

func settings() usecases.SuiteSettings {
	return usecases.SuiteSettings{
		MaxAttempts:       4,
		SettleInterval:    settle,
		ReservoirInterval: reservoir,
	}
}
