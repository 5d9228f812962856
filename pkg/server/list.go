package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iris-ai/irisd/pkg/models"
)

// Pagination defaults for GET /predictions.
const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	const route = "/predictions"
	if !s.authorize(w, r, route) {
		return
	}
	ctx := r.Context()

	q := r.URL.Query()
	limit, offset, err := parsePage(q)
	if err != nil {
		s.logger.InfoContext(ctx, "invalid pagination",
			"route", route,
			"limit", q.Get("limit"),
			"offset", q.Get("offset"),
			"error", err,
		)
		writeJSONError(w, http.StatusBadRequest, errInvalidRequest, "invalid request: "+err.Error())
		return
	}

	preds, err := s.listPredictions(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing predictions failed",
			"route", route,
			"limit", limit,
			"offset", offset,
			"error", err,
		)
		writeJSONError(w, http.StatusInternalServerError, errStorage, "failed to list predictions")
		return
	}
	if preds == nil {
		preds = []models.Prediction{}
	}
	writeJSON(w, http.StatusOK, preds)
}

func (s *Server) listPredictions(ctx context.Context, limit, offset int) ([]models.Prediction, error) {
	ctx, span := s.tracer.Start(ctx, "store.list")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset))

	preds, err := s.store.List(ctx, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	return preds, nil
}

// parsePage reads limit and offset. Absent or empty parameters take their
// defaults; anything else must be a non-negative base-10 integer.
func parsePage(q url.Values) (limit, offset int, err error) {
	limit, err = parseNonNegative(q.Get("limit"), DefaultLimit)
	if err != nil {
		return 0, 0, errors.New("limit " + err.Error())
	}
	offset, err = parseNonNegative(q.Get("offset"), DefaultOffset)
	if err != nil {
		return 0, 0, errors.New("offset " + err.Error())
	}
	return limit, offset, nil
}

func parseNonNegative(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}
