package observability

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AssignmentMetrics counts worker assignment outcomes
type AssignmentMetrics struct {
	operations metric.Int64Counter
	released   metric.Int64Counter
}

// NewAssignmentMetrics registers the assignment instruments on the global
// meter provider
func NewAssignmentMetrics() *AssignmentMetrics {
	meter := otel.Meter(MeterName)
	m := &AssignmentMetrics{}

	var err error
	m.operations, err = meter.Int64Counter(
		AssignmentOperationsTotal,
		metric.WithDescription("Worker assignment operations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		log.WithError(err).Warn("Failed to create assignment operations counter")
		m.operations, _ = noop.Meter{}.Int64Counter(AssignmentOperationsTotal)
	}

	m.released, err = meter.Int64Counter(
		WorkerBindingsReleased,
		metric.WithDescription("Worker bindings cleared by release reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		log.WithError(err).Warn("Failed to create bindings released counter")
		m.released, _ = noop.Meter{}.Int64Counter(WorkerBindingsReleased)
	}

	return m
}

// RecordOperation counts one assignment operation
func (m *AssignmentMetrics) RecordOperation(ctx context.Context, operation, outcome string) {
	m.operations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordRelease counts one cleared binding
func (m *AssignmentMetrics) RecordRelease(ctx context.Context, reason string) {
	m.released.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(LabelReason, reason),
		),
	)
}
