package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/growthchart/internal/adapters/repository"
	"github.com/okian/growthchart/pkg/metrics"
)

// TableLister reports the loaded reference partitions.
type TableLister interface {
	Tables(ctx context.Context) []repository.Partition
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	tables TableLister
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(tables TableLister) *HealthHandler {
	return &HealthHandler{tables: tables}
}

type healthResponse struct {
	Status string `json:"status"`
	Tables int    `json:"tables"`
}

// HandleHealth handles GET /healthz. The service is unavailable until at least one
// reference partition is loaded.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	n := len(h.tables.Tables(r.Context()))
	if n == 0 {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no tables loaded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Tables: n})
}

// HandleMetrics serves the service's Prometheus registry.
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
