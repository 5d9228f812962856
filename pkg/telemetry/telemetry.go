// Package telemetry sets up logging, metrics and tracing for irisd.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/iris-ai/irisd/pkg/config"
)

// Providers holds the configured tracer and meter and the handler that
// serves collected metrics.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	// Handler serves the Prometheus exposition format. It is nil when
	// metrics are disabled.
	Handler http.Handler

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

type setupOptions struct {
	version     string
	traceWriter io.Writer
}

// Option configures Setup.
type Option func(*setupOptions)

// WithVersion sets the service.version resource attribute.
func WithVersion(v string) Option {
	return func(o *setupOptions) { o.version = v }
}

// WithTraceWriter sets where the stdout exporter writes spans.
func WithTraceWriter(w io.Writer) Option {
	return func(o *setupOptions) { o.traceWriter = w }
}

// Setup builds tracer and meter providers from cfg. Disabled subsystems
// get no-op implementations so callers never branch on configuration.
func Setup(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (*Providers, error) {
	o := setupOptions{version: "dev", traceWriter: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(o.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Providers{}

	switch cfg.Tracing {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(o.traceWriter))
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		p.tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSyncer(exp),
		)
		p.Tracer = p.tp.Tracer(cfg.ServiceName)
	case "none", "":
		p.Tracer = tracenoop.NewTracerProvider().Tracer(cfg.ServiceName)
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.Tracing)
	}

	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		exp, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create metrics exporter: %w", err)
		}
		p.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exp),
		)
		p.Meter = p.mp.Meter(cfg.ServiceName)
		p.Handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	} else {
		p.Meter = metricnoop.NewMeterProvider().Meter(cfg.ServiceName)
	}

	return p, nil
}

// Shutdown flushes and stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
