package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics are the HTTP server instruments.
type Metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewMetrics registers the HTTP server instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Completed HTTP requests")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP requests being served")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRequestStart marks a request as in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.inFlight.Add(ctx, 1)
}

// RecordRequestEnd records a finished request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	m.inFlight.Add(ctx, -1)

	attrs := metric.WithAttributeSet(attribute.NewSet(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_class", strconv.Itoa(status/100)+"xx"),
	))
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
