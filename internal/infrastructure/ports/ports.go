package ports

import (
	"context"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
)

// Clock provides the current time (for testing).
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	// With returns a Logger that adds args to every record.
	With(args ...any) Logger
}

// RuleBackend manages sampling rules on the remote decision service.
type RuleBackend interface {
	CreateRule(ctx context.Context, r rule.Rule) error
	// DeleteRule removes the rule by name. Deleting a missing rule is not an error.
	DeleteRule(ctx context.Context, name rule.Name) error
	ListRuleNames(ctx context.Context) ([]string, error)
}

// TrafficTarget drives decision trials through the instrumented application.
type TrafficTarget interface {
	// Send runs trials sampling decisions for tc and returns how many were sampled.
	Send(ctx context.Context, tc testcase.TestCase, trials int) (int, error)
}

// Reservoir hands out per-rule sampling quota.
type Reservoir interface {
	// Borrow takes one token from the rule's bucket, refilled at perSecond.
	Borrow(ctx context.Context, rule string, perSecond int) bool
	// Forget discards the bucket for rule.
	Forget(rule string)
}

// SeedSource supplies the rules the emulator installs at start-up and on reload.
type SeedSource interface {
	Load(ctx context.Context) ([]rule.Definition, error)
}
