// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/okian/growthchart/internal/adapters/repository"
	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/percentile"
	"github.com/okian/growthchart/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PercentileFor(ctx context.Context, sex growth.Sex, metric growth.Metric, ageMonths, value float64) (percentile.Result, error)
	Batch(ctx context.Context, queries []percentile.Query) ([]percentile.Result, error)

	// Tables lists every loaded partition ordered by sex, metric and age.
	Tables(ctx context.Context) []repository.Partition
	Curve(ctx context.Context, sex growth.Sex, metric growth.Metric) ([]growth.Row, error)
}

// Server wires HTTP routes for the percentile API.
type Server struct {
	deps     Dependencies
	stats    *StatsHandler
	health   *HealthHandler
	maxBatch int
	logger   logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		stats:    NewStatsHandler(statsProvider),
		health:   NewHealthHandler(deps),
		maxBatch: DefaultMaxBatchSize,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	s.handle(mux, "GET /healthz", "healthz", s.health.HandleHealth)
	s.handle(mux, "GET /metrics", "metrics", HandleMetrics)
	s.handle(mux, "GET /stats", "stats", s.stats.HandleStats)
	s.handle(mux, "GET /percentile", "percentile", s.handlePercentile)
	s.handle(mux, "POST /percentiles", "percentiles", s.handleBatch)
	s.handle(mux, "GET /tables", "tables", s.handleTables)
	s.handle(mux, "GET /tables/{sex}/{metric}", "curve", s.handleCurve)
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.Handle(pattern, RequestID(MetricsMiddleware(h, endpoint)))
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, RequestID: RequestIDFrom(r.Context())})
}

// fail maps err onto a status code and writes it. Server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err))
	}
	writeError(w, r, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge, "batch_too_large"
	case errors.Is(err, growth.ErrLookup), errors.Is(err, growth.ErrNoTableResolved):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, growth.ErrDomain):
		return http.StatusUnprocessableEntity, "out_of_range"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// number returns nil for values JSON cannot carry.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
