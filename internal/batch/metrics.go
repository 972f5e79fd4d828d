package batch

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the batch instruments. A nil *Metrics records nothing.
type Metrics struct {
	items    metric.Int64Counter
	batches  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates batch instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	items, err := meter.Int64Counter("batch.items.total",
		metric.WithDescription("Items processed, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.items.total counter: %w", err)
	}

	batches, err := meter.Int64Counter("batch.requests.total",
		metric.WithDescription("Batches processed, by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.requests.total counter: %w", err)
	}

	duration, err := meter.Float64Histogram("batch.duration",
		metric.WithDescription("Duration of batch processing in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating batch.duration histogram: %w", err)
	}

	return &Metrics{items: items, batches: batches, duration: duration}, nil
}

// RecordItem counts one item outcome.
func (m *Metrics) RecordItem(ctx context.Context, status Status) {
	if m == nil {
		return
	}
	m.items.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(status))))
}

// RecordBatch records a finished batch. result is "ok", "rejected" or "error".
func (m *Metrics) RecordBatch(ctx context.Context, result string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.batches.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
