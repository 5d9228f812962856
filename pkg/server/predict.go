package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iris-ai/irisd/pkg/models"
	"github.com/iris-ai/irisd/pkg/predictor"
	"github.com/iris-ai/irisd/pkg/telemetry"
)

const maxBodySize = 1 << 20

type predictResponse struct {
	PredictedClass int `json:"predicted_class"`
}

// inputError describes a rejected request field.
type inputError struct {
	field string
	value string
	msg   string
}

func (e *inputError) Error() string {
	if e.field == "" {
		return e.msg
	}
	return e.field + ": " + e.msg
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	const route = "/predict"
	if !s.authorize(w, r, route) {
		return
	}
	ctx := r.Context()

	f, err := decodeFeatures(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		attrs := []any{"route", route, "error", err}
		var ie *inputError
		if errors.As(err, &ie) && ie.field != "" {
			attrs = append(attrs, "field", ie.field, "value", ie.value)
		}
		s.logger.InfoContext(ctx, "invalid prediction input", attrs...)
		writeJSONError(w, http.StatusBadRequest, errInvalidRequest, "invalid request: "+err.Error())
		return
	}

	label, source, err := s.resolve(ctx, f)
	if err != nil {
		s.logger.ErrorContext(ctx, "inference failed",
			"route", route,
			"features", f.String(),
			"error", err,
		)
		msg := "inference failed"
		if errors.Is(err, predictor.ErrModelUnavailable) {
			msg = "model unavailable"
		}
		writeJSONError(w, http.StatusInternalServerError, errInference, msg)
		return
	}
	s.metrics.RecordPrediction(ctx, source)

	// The cache entry written by resolve stays in place if this fails; a
	// retry of the same vector is then served from the cache.
	if _, err := s.appendPrediction(ctx, f, label); err != nil {
		s.logger.ErrorContext(ctx, "storing prediction failed",
			"route", route,
			"features", f.String(),
			"predicted_class", label,
			"error", err,
		)
		writeJSONError(w, http.StatusInternalServerError, errStorage, "failed to store prediction")
		return
	}

	if source == telemetry.SourceCache {
		w.Header().Set(CacheHeader, "hit")
	} else {
		w.Header().Set(CacheHeader, "miss")
	}
	writeJSON(w, http.StatusOK, predictResponse{PredictedClass: label})
}

type resolved struct {
	label int
	hit   bool
}

// resolve returns the label for f from the cache, or classifies f and
// caches the result. Concurrent misses for the same vector share one
// classification. A failed classification leaves the cache untouched.
func (s *Server) resolve(ctx context.Context, f models.Features) (int, string, error) {
	if label, ok := s.cache.Get(f); ok {
		s.logger.InfoContext(ctx, "cache hit", "route", "/predict", "features", f.String(), "predicted_class", label)
		return label, telemetry.SourceCache, nil
	}

	v, err, _ := s.inflight.Do(f.Key(), func() (any, error) {
		// Another flight may have finished between the miss above and now.
		if label, ok := s.cache.Get(f); ok {
			return resolved{label: label, hit: true}, nil
		}
		label, err := s.classify(ctx, f)
		if err != nil {
			return nil, err
		}
		s.cache.Put(f, label)
		s.logger.InfoContext(ctx, "cache updated", "route", "/predict", "features", f.String(), "predicted_class", label)
		return resolved{label: label}, nil
	})
	if err != nil {
		return 0, "", err
	}
	res := v.(resolved)
	if res.hit {
		return res.label, telemetry.SourceCache, nil
	}
	return res.label, telemetry.SourceModel, nil
}

func (s *Server) classify(ctx context.Context, f models.Features) (int, error) {
	ctx, span := s.tracer.Start(ctx, "predictor.classify")
	defer span.End()

	start := time.Now()
	label, err := s.predictor.Classify(f)
	s.metrics.RecordInference(ctx, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classify failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int("predicted_class", label))
	return label, nil
}

func (s *Server) appendPrediction(ctx context.Context, f models.Features, label int) (models.Prediction, error) {
	ctx, span := s.tracer.Start(ctx, "store.append")
	defer span.End()

	p, err := s.store.Append(ctx, models.Prediction{Features: f, PredictedClass: label})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return models.Prediction{}, err
	}
	span.SetAttributes(attribute.Int64("prediction.id", p.ID))
	return p, nil
}

// decodeFeatures reads a JSON object holding the four measurements. Each
// value may be a JSON number or a string holding a decimal number. Other
// fields are ignored.
func decodeFeatures(r io.Reader) (models.Features, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return models.Features{}, &inputError{msg: fmt.Sprintf("body exceeds %d bytes", maxErr.Limit)}
		}
		return models.Features{}, &inputError{msg: "body must be a JSON object"}
	}
	if raw == nil {
		return models.Features{}, &inputError{msg: "body must be a JSON object"}
	}
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return models.Features{}, &inputError{msg: "unexpected data after JSON object"}
	}

	var v [models.NumFeatures]float64
	for i, name := range models.FeatureNames {
		val, ok := raw[name]
		if !ok {
			return models.Features{}, &inputError{field: name, msg: "missing field"}
		}
		x, err := parseNumber(val)
		if err != nil {
			return models.Features{}, &inputError{field: name, value: truncate(string(val), 64), msg: err.Error()}
		}
		v[i] = x
	}
	return models.NewFeatures(v), nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, errors.New("must be a number")
	}

	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return 0, errors.New("must be a number")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("must be a finite number")
	}
	return f, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
