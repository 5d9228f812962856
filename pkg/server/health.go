package server

import (
	"context"
	"net/http"
	"time"

	"github.com/iris-ai/irisd/pkg/predictor"
)

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleHealthz reports liveness. It is not gated by authentication.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReadyz reports whether the model is loaded and the store reachable.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := readiness{Status: "ok", Checks: map[string]string{"model": "ok", "store": "ok"}}
	if err := predictor.Ready(s.predictor); err != nil {
		res.Status = "unavailable"
		res.Checks["model"] = "unavailable"
	}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "store ping failed", "route", "/readyz", "error", err)
		res.Status = "unavailable"
		res.Checks["store"] = "unavailable"
	}

	code := http.StatusOK
	if res.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, res)
}
