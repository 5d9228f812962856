// Package server exposes the prediction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/singleflight"

	"github.com/iris-ai/irisd/pkg/auth"
	"github.com/iris-ai/irisd/pkg/cache"
	"github.com/iris-ai/irisd/pkg/config"
	"github.com/iris-ai/irisd/pkg/predictor"
	"github.com/iris-ai/irisd/pkg/store"
	"github.com/iris-ai/irisd/pkg/telemetry"
)

// Error categories returned in the "type" field of error bodies.
const (
	errUnauthorized   = "unauthorized"
	errInvalidRequest = "invalid_request"
	errInference      = "inference_error"
	errStorage        = "storage_error"
)

// CacheHeader reports whether a prediction was served from the memo cache.
const CacheHeader = "X-Irisd-Cache"

// Authenticator validates the Authorization header of a request.
type Authenticator interface {
	ValidateHeader(header string) (auth.Identity, error)
}

// Server is the irisd HTTP API.
type Server struct {
	cfg       *config.Config
	auth      Authenticator
	predictor predictor.Predictor
	cache     cache.Cache
	store     store.Store

	logger         *slog.Logger
	metrics        *telemetry.Metrics
	tracer         trace.Tracer
	metricsHandler http.Handler

	inflight singleflight.Group
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the pipeline instruments.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer sets the tracer used for request and pipeline spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// New creates a Server wired with its collaborators.
func New(cfg *config.Config, a Authenticator, p predictor.Predictor, c cache.Cache, st store.Store, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		auth:      a,
		predictor: p,
		cache:     c,
		store:     st,
		logger:    telemetry.Discard(),
		tracer:    tracenoop.NewTracerProvider().Tracer("irisd"),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.Handle("POST /predict", s.instrument("/predict", s.handlePredict))
	s.mux.Handle("GET /predictions", s.instrument("/predictions", s.handleList))
	s.mux.Handle("GET /healthz", s.instrument("/healthz", s.handleHealthz))
	s.mux.Handle("GET /readyz", s.instrument("/readyz", s.handleReadyz))
	if s.metricsHandler != nil {
		s.mux.Handle("GET /metrics", s.metricsHandler)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("irisd listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// authorize is the first stage of every pipeline handler. It writes a 401
// and returns false when the request carries no valid credential.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, route string) bool {
	id, err := s.auth.ValidateHeader(r.Header.Get("Authorization"))
	if err != nil {
		reason := auth.Reason(err)
		s.logger.InfoContext(r.Context(), "credential rejected",
			"route", route,
			"reason", reason,
			"error", err,
		)
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeJSONError(w, http.StatusUnauthorized, errUnauthorized, "invalid credential: "+reason)
		return false
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", id.Subject))
	return true
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with a request span and the request counter.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", rec.status),
		)
		s.metrics.RecordRequest(ctx, route, rec.status)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, category, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":%q,"code":%d}}`, message, category, code)
}
