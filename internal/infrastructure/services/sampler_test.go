package services_test

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/services"
	"github.com/sophialabs/samplingconformance/internal/testutil"
)

func seededIndex(t *testing.T, rules ...rule.Rule) *services.RuleIndex {
	t.Helper()
	idx := services.NewRuleIndex()
	put(t, idx, rule.New(rule.Default, 10000, .05, .05).Definition())
	for _, r := range rules {
		put(t, idx, r.Definition())
	}
	return idx
}

func params(service, method, target string, extra ...attribute.KeyValue) sdktrace.SamplingParameters {
	attrs := append([]attribute.KeyValue{
		attribute.String(services.AttrHTTPMethod, method),
		attribute.String(services.AttrHTTPTarget, target),
	}, extra...)
	return sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		Name:          service,
		Attributes:    attrs,
	}
}

func TestRuleSampler_Decisions(t *testing.T) {
	idx := seededIndex(t,
		rule.New(rule.ImportantEndpoint, 1, 1, 1).WithPath("/importantEndpoint").WithReservoir(0),
		rule.New(rule.ImportantAttribute, 2, .5, .5).WithAttributes(map[string]string{"user": "admin"}).WithReservoir(0),
		rule.New(rule.ImportantServiceName, 3, 1, 1).WithServiceName("checkout").WithReservoir(0),
	)

	tests := []struct {
		name     string
		params   sdktrace.SamplingParameters
		random   float64
		wantRule string
		want     sdktrace.SamplingDecision
	}{
		{"endpoint rule", params("svc", "GET", "/importantEndpoint"), .99, "ImportantEndpoint", sdktrace.RecordAndSample},
		{"attribute below rate", params("svc", "GET", "/getSampled", attribute.String("user", "admin")), .4, "ImportantAttribute", sdktrace.RecordAndSample},
		{"attribute above rate", params("svc", "GET", "/getSampled", attribute.String("user", "admin")), .6, "ImportantAttribute", sdktrace.Drop},
		{"service name", params("checkout", "POST", "/getSampled"), .99, "ImportantServiceName", sdktrace.RecordAndSample},
		{"default", params("svc", "GET", "/getSampled", attribute.String("user", "test")), .5, "Default", sdktrace.Drop},
		{"non string attribute ignored", params("svc", "GET", "/getSampled", attribute.Int("user", 1)), .5, "Default", sdktrace.Drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions := journal.NewRingBuffer[journal.Decision](10)
			s := services.NewRuleSampler(idx, &testutil.StubReservoir{}, decisions,
				&testutil.FixedClock{T: time.Unix(0, 0)},
				services.WithRandom(func() float64 { return tt.random }))

			got := s.ShouldSample(tt.params)
			if got.Decision != tt.want {
				t.Errorf("expected decision %v, got %v", tt.want, got.Decision)
			}
			last := decisions.Last(1)
			if len(last) != 1 || last[0].Rule != tt.wantRule {
				t.Errorf("expected rule %s, got %+v", tt.wantRule, last)
			}
		})
	}
}

func TestRuleSampler_ReservoirBorrowWins(t *testing.T) {
	idx := seededIndex(t, rule.New(rule.HighReservoir, 2000, 0, .5).WithReservoir(500))
	decisions := journal.NewRingBuffer[journal.Decision](10)
	s := services.NewRuleSampler(idx, &testutil.StubReservoir{LendAll: true}, decisions,
		&testutil.FixedClock{}, services.WithRandom(func() float64 { return .99 }))

	if got := s.ShouldSample(params("svc", "GET", "/")); got.Decision != sdktrace.RecordAndSample {
		t.Errorf("expected borrowed sample, got %v", got.Decision)
	}
	if d := decisions.Last(1)[0]; !d.Borrowed || !d.Sampled || d.Rule != "HighReservoir" {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestRuleSampler_NoRules(t *testing.T) {
	s := services.NewRuleSampler(services.NewRuleIndex(), &testutil.StubReservoir{LendAll: true}, nil, &testutil.FixedClock{})
	if got := s.ShouldSample(params("svc", "GET", "/")); got.Decision != sdktrace.Drop {
		t.Errorf("expected drop without rules, got %v", got.Decision)
	}
}

func TestRuleSampler_TracerProvider(t *testing.T) {
	idx := seededIndex(t, rule.New(rule.AcceptAll, 1000, 1, 1).WithReservoir(0))
	s := services.NewRuleSampler(idx, &testutil.StubReservoir{}, nil, &testutil.FixedClock{})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(s))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "svc")
	defer span.End()
	if !span.SpanContext().IsSampled() {
		t.Error("expected span to be sampled")
	}
	if s.Description() == "" {
		t.Error("expected a description")
	}
}
