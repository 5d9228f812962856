package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Prediction sources.
const (
	SourceCache = "cache"
	SourceModel = "model"
)

// Metrics records request pipeline instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	meter       metric.Meter
	requests    metric.Int64Counter
	predictions metric.Int64Counter
	inference   metric.Float64Histogram
}

// NewMetrics creates the pipeline instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requests, err := meter.Int64Counter(
		"irisd.http.requests",
		metric.WithDescription("HTTP requests by route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	predictions, err := meter.Int64Counter(
		"irisd.predictions",
		metric.WithDescription("Resolved predictions by source"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	inference, err := meter.Float64Histogram(
		"irisd.inference.duration",
		metric.WithDescription("Model inference duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:       meter,
		requests:    requests,
		predictions: predictions,
		inference:   inference,
	}, nil
}

// RecordRequest counts one finished HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	))
}

// RecordPrediction counts one resolved label and where it came from.
func (m *Metrics) RecordPrediction(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordInference records the duration of one model call.
func (m *Metrics) RecordInference(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.inference.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("error", err != nil)))
}

// ObserveCacheEntries registers a gauge reporting entries() on every
// collection.
func (m *Metrics) ObserveCacheEntries(entries func() int64) error {
	if m == nil {
		return nil
	}
	_, err := m.meter.Int64ObservableGauge(
		"irisd.cache.entries",
		metric.WithDescription("Memoized feature vectors"),
		metric.WithUnit("{entry}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(entries())
			return nil
		}),
	)
	return err
}
