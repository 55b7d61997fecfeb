package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/lounge"

// Tracer provides OpenTelemetry tracing for the lounge engine.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new lounge tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDeliverySpan starts a new span for a delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, jobID string, msid, targetID int64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "lounge.delivery",
		trace.WithAttributes(
			attribute.String("lounge.job_id", jobID),
			attribute.Int64("lounge.msid", msid),
			attribute.Int64("lounge.target_id", targetID),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, attempts int, outcome string) {
	span.SetAttributes(
		attribute.Int("lounge.attempts", attempts),
		attribute.String("lounge.outcome", outcome),
	)
	span.End()
}
