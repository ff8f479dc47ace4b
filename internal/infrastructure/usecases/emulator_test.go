package usecases_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/usecases"
	"github.com/sophialabs/samplingconformance/internal/testutil"
)

type emulator struct {
	index     *services.RuleIndex
	reservoir *testutil.StubReservoir
	create    *usecases.CreateRuleUseCase
	delete    *usecases.DeleteRuleUseCase
}

func newEmulator(t *testing.T) *emulator {
	t.Helper()
	e := &emulator{
		index:     services.NewRuleIndex(),
		reservoir: &testutil.StubReservoir{},
	}
	logger := &testutil.NoopLogger{}
	e.create = usecases.NewCreateRuleUseCase(services.NewCompiler(), e.index, logger)
	e.delete = usecases.NewDeleteRuleUseCase(e.index, e.reservoir, logger)
	if err := e.create.Execute(context.Background(), rule.New(rule.Default, 10000, .05, .05).Definition()); err != nil {
		t.Fatalf("seeding Default failed: %v", err)
	}
	return e
}

func names(idx *services.RuleIndex) []string {
	var out []string
	for _, d := range idx.Definitions() {
		out = append(out, d.RuleName)
	}
	return out
}

func TestCreateRule(t *testing.T) {
	e := newEmulator(t)
	ctx := context.Background()

	if err := e.create.Execute(ctx, rule.New(rule.PostRule, 10, .1, .11).WithMethod("POST").Definition()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := names(e.index); !slices.Equal(got, []string{"PostRule", "Default"}) {
		t.Errorf("unexpected rules %v", got)
	}

	err := e.create.Execute(ctx, rule.New(rule.PostRule, 1, 1, 1).Definition())
	if !errors.Is(err, usecases.ErrRuleExists) {
		t.Errorf("expected ErrRuleExists, got %v", err)
	}

	err = e.create.Execute(ctx, rule.Definition{RuleName: "Bad", FixedRate: 3})
	if !errors.Is(err, services.ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
	if e.index.Len() != 2 {
		t.Errorf("failed creates must not change the index, got %d rules", e.index.Len())
	}
}

func TestDeleteRule(t *testing.T) {
	e := newEmulator(t)
	ctx := context.Background()
	_ = e.create.Execute(ctx, rule.New(rule.AcceptAll, 1000, 1, 1).Definition())

	def, err := e.delete.Execute(ctx, "AcceptAll")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if def.RuleName != "AcceptAll" {
		t.Errorf("expected deleted definition, got %+v", def)
	}
	if !slices.Equal(e.reservoir.Forgotten, []string{"AcceptAll"}) {
		t.Errorf("expected reservoir bucket dropped, got %v", e.reservoir.Forgotten)
	}

	if _, err := e.delete.Execute(ctx, "AcceptAll"); !errors.Is(err, usecases.ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
	if _, err := e.delete.Execute(ctx, "Default"); !errors.Is(err, usecases.ErrImmutableRule) {
		t.Errorf("expected ErrImmutableRule, got %v", err)
	}
	if _, ok := e.index.Get("Default"); !ok {
		t.Error("Default must survive")
	}
}

func TestLoadSeedRules_ReloadRemovesDroppedSeeds(t *testing.T) {
	e := newEmulator(t)
	ctx := context.Background()
	_ = e.create.Execute(ctx, rule.New(rule.AcceptAll, 1000, 1, 1).Definition())

	seed := &testutil.StaticSeed{}
	seed.Set(
		rule.Definition{RuleName: "Health", Priority: 1, URLPath: "/health"},
		rule.Definition{RuleName: "Admins", Priority: 2, FixedRate: 1},
	)
	uc := usecases.NewLoadSeedRulesUseCase(seed, services.NewCompiler(), e.index, e.reservoir, &testutil.NoopLogger{})

	n, err := uc.Execute(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Execute returned %d, %v", n, err)
	}
	if got := names(e.index); !slices.Equal(got, []string{"Health", "Admins", "AcceptAll", "Default"}) {
		t.Errorf("unexpected rules after first load %v", got)
	}

	seed.Set(rule.Definition{RuleName: "Admins", Priority: 2, FixedRate: .5})
	if _, err := uc.Execute(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := names(e.index); !slices.Equal(got, []string{"Admins", "AcceptAll", "Default"}) {
		t.Errorf("unexpected rules after reload %v", got)
	}
	if def, _ := e.index.Get("Admins"); def.FixedRate != .5 {
		t.Errorf("expected updated Admins rule, got %+v", def)
	}
	if !slices.Contains(e.reservoir.Forgotten, "Health") {
		t.Error("expected reservoir bucket of removed seed to be dropped")
	}
}

func TestLoadSeedRules_InvalidSeedAppliesNothing(t *testing.T) {
	e := newEmulator(t)
	seed := &testutil.StaticSeed{}
	seed.Set(
		rule.Definition{RuleName: "Good", Priority: 1},
		rule.Definition{RuleName: "Bad", FixedRate: -1},
	)
	uc := usecases.NewLoadSeedRulesUseCase(seed, services.NewCompiler(), e.index, e.reservoir, &testutil.NoopLogger{})

	if _, err := uc.Execute(context.Background()); !errors.Is(err, services.ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
	if _, ok := e.index.Get("Good"); ok {
		t.Error("no rule should be applied from an invalid seed")
	}

	seed.Err = errors.New("disk gone")
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected source error")
	}
}

func TestSampleSpans(t *testing.T) {
	e := newEmulator(t)
	ctx := context.Background()
	_ = e.create.Execute(ctx, rule.New(rule.ImportantEndpoint, 1, 1, 1).WithPath("/importantEndpoint").WithReservoir(0).Definition())
	_ = e.create.Execute(ctx, rule.New(rule.SampleNone, 2, 0, 0).WithReservoir(0).Definition())

	sampler := services.NewRuleSampler(e.index, e.reservoir, nil, &testutil.FixedClock{})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	defer func() { _ = tp.Shutdown(ctx) }()
	uc := usecases.NewSampleSpansUseCase(tp, &testutil.NoopLogger{})

	tests := []struct {
		target string
		want   int
	}{
		{"/importantEndpoint", 50},
		{"/getSampled", 0},
	}
	for _, tt := range tests {
		got, err := uc.Execute(ctx, usecases.SpanTraffic{
			ServiceName: "default",
			Method:      "GET",
			Target:      tt.target,
			Route:       tt.target,
			User:        "test",
			Required:    "false",
		}, 50)
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %d sampled, got %d", tt.target, tt.want, got)
		}
	}
}

func TestSampleSpans_Cancelled(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	uc := usecases.NewSampleSpansUseCase(tp, &testutil.NoopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := uc.Execute(ctx, usecases.SpanTraffic{ServiceName: "x"}, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
