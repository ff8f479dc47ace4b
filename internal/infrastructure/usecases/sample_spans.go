package usecases

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// SpanTraffic describes the spans generated for one traffic request.
type SpanTraffic struct {
	ServiceName string
	Method      string
	URL         string
	Route       string
	Target      string
	User        string
	Required    string
}

func (t SpanTraffic) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", t.Method),
		attribute.String("http.url", t.URL),
		attribute.String("user", t.User),
		attribute.String("http.route", t.Route),
		attribute.String("required", t.Required),
		attribute.String("http.target", t.Target),
	}
}

// SampleSpansUseCase starts server spans and counts how many were sampled.
type SampleSpansUseCase struct {
	provider trace.TracerProvider
	logger   ports.Logger
}

// NewSampleSpansUseCase creates a new use case.
func NewSampleSpansUseCase(provider trace.TracerProvider, logger ports.Logger) *SampleSpansUseCase {
	return &SampleSpansUseCase{
		provider: provider,
		logger:   logger,
	}
}

// Execute starts total spans named after the service and returns the
// number the sampler kept. It stops early if ctx is cancelled.
func (uc *SampleSpansUseCase) Execute(ctx context.Context, traffic SpanTraffic, total int) (int, error) {
	tracer := uc.provider.Tracer(traffic.ServiceName)
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(traffic.attributes()...),
	}

	sampled := 0
	for range total {
		if err := ctx.Err(); err != nil {
			return sampled, err
		}
		_, span := tracer.Start(ctx, traffic.ServiceName, opts...)
		if span.SpanContext().IsSampled() {
			sampled++
		}
		span.End()
	}

	uc.logger.Debug("spans sampled",
		"service", traffic.ServiceName,
		"method", traffic.Method,
		"target", traffic.Target,
		"user", traffic.User,
		"total", total,
		"sampled", sampled,
	)
	return sampled, nil
}
