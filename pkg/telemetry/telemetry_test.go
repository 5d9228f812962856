package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iris-ai/irisd/pkg/config"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("hello", "route", "/predict")

	if !strings.Contains(buf.String(), `"msg":"hello"`) || !strings.Contains(buf.String(), `"route":"/predict"`) {
		t.Errorf("unexpected json output: %q", buf.String())
	}
}

func TestSetupMetricsHandler(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, config.TelemetryConfig{ServiceName: "irisd-test", Metrics: true, Tracing: "none"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.Handler == nil {
		t.Fatal("expected metrics handler")
	}

	m, err := NewMetrics(p.Meter)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ObserveCacheEntries(func() int64 { return 7 }); err != nil {
		t.Fatal(err)
	}
	m.RecordRequest(ctx, "/predict", 200)
	m.RecordPrediction(ctx, SourceCache)
	m.RecordInference(ctx, 3*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"irisd_http_requests",
		"irisd_predictions",
		"irisd_inference_duration",
		"irisd_cache_entries",
		`source="cache"`,
		`route="/predict"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "irisd-test", Tracing: "none"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Handler != nil {
		t.Error("expected no metrics handler when metrics are disabled")
	}
	if p.Tracer == nil || p.Meter == nil {
		t.Error("expected no-op tracer and meter")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupStdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(context.Background(),
		config.TelemetryConfig{ServiceName: "irisd-test", Tracing: "stdout"},
		WithTraceWriter(&buf),
	)
	if err != nil {
		t.Fatal(err)
	}

	_, span := p.Tracer.Start(context.Background(), "predictor.classify")
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "predictor.classify") {
		t.Errorf("expected span in trace output, got %q", buf.String())
	}
}

func TestSetupUnknownTracing(t *testing.T) {
	if _, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "x", Tracing: "jaeger"}); err == nil {
		t.Error("expected error for unknown tracing exporter")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRequest(ctx, "/predict", 200)
	m.RecordPrediction(ctx, SourceModel)
	m.RecordInference(ctx, time.Second, errors.New("boom"))
	if err := m.ObserveCacheEntries(func() int64 { return 0 }); err != nil {
		t.Error(err)
	}
}
