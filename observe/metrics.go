package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/orderstack/fulfillment/resilience"
)

// CallMetrics exports dependency call telemetry through OpenTelemetry.
// It implements resilience.EventListener so it can be attached directly to a
// pipeline, usually alongside the in-process monitor.
type CallMetrics struct {
	calls       metric.Int64Counter
	errors      metric.Int64Counter
	duration    metric.Float64Histogram
	retries     metric.Int64Counter
	timeouts    metric.Int64Counter
	transitions metric.Int64Counter
}

// NewCallMetrics registers the dependency call instruments on the meter.
func NewCallMetrics(meter metric.Meter) (*CallMetrics, error) {
	calls, err := meter.Int64Counter(
		"dependency.calls",
		metric.WithDescription("Total number of guarded dependency calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errCount, err := meter.Int64Counter(
		"dependency.errors",
		metric.WithDescription("Total number of failed dependency calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"dependency.duration_ms",
		metric.WithDescription("Dependency call duration including retries and queueing"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"dependency.retries",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter(
		"dependency.timeouts",
		metric.WithDescription("Total number of attempts that hit their deadline"),
		metric.WithUnit("{timeout}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &CallMetrics{
		calls:       calls,
		errors:      errCount,
		duration:    duration,
		retries:     retries,
		timeouts:    timeouts,
		transitions: transitions,
	}, nil
}

// StateChange records a circuit breaker transition.
func (m *CallMetrics) StateChange(dependency string, from, to resilience.State) {
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// Retry records one retry attempt.
func (m *CallMetrics) Retry(dependency string, attempt int, reason string) {
	m.retries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
	))
}

// Timeout records one attempt deadline.
func (m *CallMetrics) Timeout(dependency string, duration time.Duration) {
	m.timeouts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
	))
}

// Call records the terminal outcome of one pipeline execution.
func (m *CallMetrics) Call(dependency string, duration time.Duration, err error) {
	ctx := context.Background()
	opt := metric.WithAttributes(attribute.String("dependency", dependency))

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("dependency", dependency),
			attribute.Bool("rejected", resilience.IsRejection(err)),
		))
	}
	m.duration.Record(ctx, float64(duration.Milliseconds()), opt)
}

var _ resilience.EventListener = (*CallMetrics)(nil)
