package services

import (
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/sophialabs/samplingconformance/internal/domain/journal"
	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// Span attribute keys read by the sampler.
const (
	AttrHTTPMethod = "http.method"
	AttrHTTPTarget = "http.target"
)

// RuleSampler decides each span from the live rule set. The span name is
// the service name rules match against.
type RuleSampler struct {
	index     *RuleIndex
	evaluator *match.Evaluator
	reservoir ports.Reservoir
	decisions *journal.RingBuffer[journal.Decision]
	clock     ports.Clock
	random    func() float64
}

// SamplerOption customizes a RuleSampler.
type SamplerOption func(*RuleSampler)

// WithRandom replaces the source of uniform values in [0,1).
func WithRandom(fn func() float64) SamplerOption {
	return func(s *RuleSampler) { s.random = fn }
}

// NewRuleSampler creates a sampler over index. decisions may be nil.
func NewRuleSampler(
	index *RuleIndex,
	reservoir ports.Reservoir,
	decisions *journal.RingBuffer[journal.Decision],
	clock ports.Clock,
	opts ...SamplerOption,
) *RuleSampler {
	s := &RuleSampler{
		index:     index,
		evaluator: match.NewEvaluator(),
		reservoir: reservoir,
		decisions: decisions,
		clock:     clock,
		random:    rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldSample implements sdktrace.Sampler.
func (s *RuleSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	psc := trace.SpanContextFromContext(p.ParentContext)
	req := spanRequest(p.Name, p.Attributes)

	d := journal.Decision{
		Timestamp:   s.clock.Now(),
		ServiceName: req.ServiceName,
		Method:      req.Method,
		Target:      req.Path,
	}

	result := s.evaluator.Evaluate(req, s.index.Ordered())
	if cr := result.Matched; cr != nil {
		d.Rule = cr.Name
		d.Borrowed = s.reservoir.Borrow(p.ParentContext, cr.Name, cr.Reservoir)
		d.Sampled = d.Borrowed || s.random() < cr.Rate
	}

	if s.decisions != nil {
		s.decisions.Add(d)
	}

	decision := sdktrace.Drop
	if d.Sampled {
		decision = sdktrace.RecordAndSample
	}
	return sdktrace.SamplingResult{
		Decision:   decision,
		Tracestate: psc.TraceState(),
	}
}

// Description implements sdktrace.Sampler.
func (s *RuleSampler) Description() string {
	return "RuleSampler"
}

func spanRequest(name string, attrs []attribute.KeyValue) *match.SpanRequest {
	req := &match.SpanRequest{
		ServiceName: name,
		Attributes:  make(map[string]string, len(attrs)),
	}
	for _, kv := range attrs {
		if kv.Value.Type() != attribute.STRING {
			continue
		}
		v := kv.Value.AsString()
		switch string(kv.Key) {
		case AttrHTTPMethod:
			req.Method = v
		case AttrHTTPTarget:
			req.Path = v
		}
		req.Attributes[string(kv.Key)] = v
	}
	return req
}
