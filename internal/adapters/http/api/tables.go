package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/growthchart/internal/domain/growth"
)

type partitionResponse struct {
	Sex      growth.Sex    `json:"sex"`
	Metric   growth.Metric `json:"metric"`
	AgeRange string        `json:"age_range"`
	Rows     int           `json:"rows"`
	MinMonth float64       `json:"min_month"`
	MaxMonth float64       `json:"max_month"`
	Source   string        `json:"source,omitempty"`
}

type tablesResponse struct {
	Count      int                 `json:"count"`
	Partitions []partitionResponse `json:"partitions"`
}

// handleTables handles GET /tables.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	parts := s.deps.Tables(r.Context())
	out := tablesResponse{Count: len(parts), Partitions: make([]partitionResponse, 0, len(parts))}
	for _, p := range parts {
		out.Partitions = append(out.Partitions, partitionResponse{
			Sex:      p.Sex,
			Metric:   p.Metric,
			AgeRange: p.Range.String(),
			Rows:     p.Table.Len(),
			MinMonth: p.Table.MinAge(),
			MaxMonth: p.Table.MaxAge(),
			Source:   p.Source,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type curveRow struct {
	Month float64 `json:"month"`
	growth.LMS
	// Percentiles maps "p50" etc. to the tabulated measurement; levels a table lacks are left out.
	Percentiles map[string]float64 `json:"percentiles,omitempty"`
}

type curveResponse struct {
	Sex    growth.Sex    `json:"sex"`
	Metric growth.Metric `json:"metric"`
	Unit   string        `json:"unit"`
	Rows   []curveRow    `json:"rows"`
}

// handleCurve handles GET /tables/{sex}/{metric}.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	sex, err := growth.ParseSex(r.PathValue("sex"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	metric, err := growth.ParseMetric(r.PathValue("metric"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	rows, err := s.deps.Curve(r.Context(), sex, metric)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := curveResponse{Sex: sex, Metric: metric, Unit: metric.Unit(), Rows: make([]curveRow, len(rows))}
	for i, row := range rows {
		cr := curveRow{Month: row.Month, LMS: row.LMS}
		for j, level := range growth.PercentileLevels {
			if v := number(row.Curves[j]); v != nil {
				if cr.Percentiles == nil {
					cr.Percentiles = make(map[string]float64, len(growth.PercentileLevels))
				}
				cr.Percentiles["p"+strconv.Itoa(level)] = *v
			}
		}
		out.Rows[i] = cr
	}
	writeJSON(w, http.StatusOK, out)
}
