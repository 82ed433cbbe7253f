package telemetry

import (
	"context"
	"time"

	"github.com/iwvelando/finance-formula/pkg/formula"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metric names.
const (
	MetricValidations = "formula.validations"
	MetricDuration    = "formula.validation.duration"
)

// Recorder counts validation verdicts and their latency.
type Recorder struct {
	tracer      trace.Tracer
	validations metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRecorder creates a Recorder from an explicit meter and tracer.
func NewRecorder(meter metric.Meter, tracer trace.Tracer) (*Recorder, error) {
	validations, err := meter.Int64Counter(MetricValidations,
		metric.WithDescription("Formula validations by operation and verdict"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Formula validation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{tracer: tracer, validations: validations, duration: duration}, nil
}

// Default creates a Recorder on the global providers installed by Init.
func Default() (*Recorder, error) {
	return NewRecorder(Meter(), Tracer())
}

// Observe runs validate inside a span named after op and records the
// verdict. A nil Recorder just runs validate.
func (r *Recorder) Observe(ctx context.Context, op string, validate func() formula.ValidationResult) formula.ValidationResult {
	if r == nil {
		return validate()
	}

	ctx, span := r.tracer.Start(ctx, "formula."+op)
	defer span.End()

	start := time.Now()
	result := validate()
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	attrs := verdictAttributes(op, result)
	span.SetAttributes(attrs...)
	if !result.IsValid && result.Error != nil {
		span.SetStatus(codes.Error, result.Error.Message)
	}

	r.validations.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.duration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("op", op)))
	return result
}

func verdictAttributes(op string, result formula.ValidationResult) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op", op),
		attribute.Bool("valid", result.IsValid),
	}
	if result.Error != nil {
		attrs = append(attrs,
			attribute.String("kind", string(result.Error.Kind)),
			attribute.String("reason", string(result.Error.Reason)),
		)
	}
	return attrs
}
