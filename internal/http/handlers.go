package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ecomkpi/internal/core"
	"ecomkpi/internal/engine"
	"ecomkpi/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports 503 until the first dataset snapshot is installed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ready",
		"http":      s.tracer.GetMetrics(),
		"rateLimit": s.limiter.GetMetrics(),
		"security":  s.detector.GetMetrics(),
	}
	if s.status != nil {
		body["reload"] = s.status()
	}
	code := http.StatusOK
	if !s.queries.Ready() {
		body["status"] = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Queries())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")

	year, err := core.ParseYear(r.URL.Query().Get("year"))
	if err != nil {
		s.fail(ctx, w, name, err)
		return
	}

	rows, err := s.queries.Run(ctx, name, year)
	if err != nil {
		s.fail(ctx, w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeRows(rows))
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, name string, err error) {
	code, msg := statusFor(err)
	logger := log.FromContext(ctx)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Query request failed", log.FieldQuery, name, log.FieldError, err)
	} else {
		logger.DebugContext(ctx, "Query request rejected", log.FieldQuery, name, log.FieldError, err)
	}
	writeError(w, code, msg)
}

// statusFor maps an error to a status code and a short client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidYear):
		return http.StatusBadRequest, "invalid year: expected a 4-digit year or All"
	case errors.Is(err, core.ErrUnknownQuery):
		return http.StatusNotFound, "unknown query"
	case errors.Is(err, core.ErrDataSourceUnavailable):
		return http.StatusServiceUnavailable, "data source unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "query timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	case errors.Is(err, engine.ErrInvalidStage),
		errors.Is(err, engine.ErrUnknownReducer),
		errors.Is(err, engine.ErrUnknownCollection):
		return http.StatusInternalServerError, "invalid query definition"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
