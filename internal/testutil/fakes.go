package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/conformance"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)      {}
func (l *NoopLogger) Warn(string, ...any)      {}
func (l *NoopLogger) Error(string, ...any)     {}
func (l *NoopLogger) Debug(string, ...any)     {}
func (l *NoopLogger) With(...any) ports.Logger { return l }

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }
func (c *FixedClock) SleepContext(context.Context, time.Duration) error {
	return nil
}

var _ ports.Clock = (*RecordingClock)(nil)

// RecordingClock records requested sleeps without blocking and advances its
// own time by each of them.
type RecordingClock struct {
	mu     sync.Mutex
	T      time.Time
	sleeps []time.Duration
}

func (c *RecordingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

func (c *RecordingClock) SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.T = c.T.Add(d)
	return nil
}

// Sleeps returns a copy of the recorded sleep durations.
func (c *RecordingClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sleeps)
}

var _ ports.RuleBackend = (*FakeBackend)(nil)

// BackendCall is one recorded call against FakeBackend.
type BackendCall struct {
	Op   string // "create", "delete" or "list"
	Rule string
}

// FakeBackend is an in-memory rule store. Default is always present.
type FakeBackend struct {
	mu    sync.Mutex
	rules []string
	calls []BackendCall

	// Failure injection.
	FailCreate map[string]bool
	FailDelete map[string]bool
	FailList   bool
}

// NewFakeBackend creates a backend holding Default plus extra rule names.
func NewFakeBackend(extra ...string) *FakeBackend {
	return &FakeBackend{rules: append([]string{string(rule.Default)}, extra...)}
}

func (b *FakeBackend) CreateRule(_ context.Context, r rule.Rule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, BackendCall{Op: "create", Rule: string(r.Name)})
	if b.FailCreate[string(r.Name)] {
		return fmt.Errorf("%w: create %s refused", conformance.ErrBackendUnavailable, r.Name)
	}
	if !slices.Contains(b.rules, string(r.Name)) {
		b.rules = append(b.rules, string(r.Name))
	}
	return nil
}

func (b *FakeBackend) DeleteRule(_ context.Context, name rule.Name) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, BackendCall{Op: "delete", Rule: string(name)})
	if b.FailDelete[string(name)] {
		return fmt.Errorf("%w: delete %s refused", conformance.ErrBackendUnavailable, name)
	}
	if name.Immutable() {
		return nil
	}
	b.rules = slices.DeleteFunc(b.rules, func(s string) bool { return s == string(name) })
	return nil
}

func (b *FakeBackend) ListRuleNames(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, BackendCall{Op: "list"})
	if b.FailList {
		return nil, fmt.Errorf("%w: list refused", conformance.ErrBackendUnavailable)
	}
	return slices.Clone(b.rules), nil
}

// Rules returns the rule names currently held.
func (b *FakeBackend) Rules() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.rules)
}

// Calls returns every recorded call in order.
func (b *FakeBackend) Calls() []BackendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

var _ ports.TrafficTarget = (*ScriptedTarget)(nil)

// Reply is one scripted traffic outcome.
type Reply struct {
	Count int
	Err   error
}

// ScriptedTarget answers traffic calls from a per-test-case script. Once a
// script runs out its last reply repeats. Unscripted test cases get Default.
type ScriptedTarget struct {
	mu      sync.Mutex
	Scripts map[string][]Reply
	Default Reply
	// Respond, when set, takes precedence over scripts.
	Respond func(tc testcase.TestCase, trials int) Reply
	calls   []string
}

func (t *ScriptedTarget) Send(_ context.Context, tc testcase.TestCase, trials int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, tc.Name)

	if t.Respond != nil {
		r := t.Respond(tc, trials)
		return r.Count, r.Err
	}

	script := t.Scripts[tc.Name]
	if len(script) == 0 {
		return t.Default.Count, t.Default.Err
	}
	r := script[0]
	if len(script) > 1 {
		t.Scripts[tc.Name] = script[1:]
	}
	return r.Count, r.Err
}

// Calls returns the test-case names sent so far.
func (t *ScriptedTarget) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.calls)
}

var _ ports.Reservoir = (*StubReservoir)(nil)

// StubReservoir lends according to a fixed answer and records forgotten rules.
type StubReservoir struct {
	mu        sync.Mutex
	LendAll   bool
	Forgotten []string
}

func (r *StubReservoir) Borrow(context.Context, string, int) bool { return r.LendAll }

func (r *StubReservoir) Forget(rule string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Forgotten = append(r.Forgotten, rule)
}

var _ ports.SeedSource = (*StaticSeed)(nil)

// StaticSeed serves a fixed rule list. Swap Defs between loads to simulate
// an edited seed file.
type StaticSeed struct {
	mu   sync.Mutex
	Defs []rule.Definition
	Err  error
}

func (s *StaticSeed) Set(defs ...rule.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Defs = defs
}

func (s *StaticSeed) Load(context.Context) ([]rule.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return slices.Clone(s.Defs), nil
}
