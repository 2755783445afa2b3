package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/percentile"
)

// percentileResponse is one computed (or NoResult) measurement. Numbers JSON cannot
// carry are omitted.
type percentileResponse struct {
	Sex        growth.Sex    `json:"sex"`
	Metric     growth.Metric `json:"metric"`
	AgeMonths  float64       `json:"age_months"`
	Value      *float64      `json:"value"`
	ZScore     *float64      `json:"zscore,omitempty"`
	Percentile *float64      `json:"percentile,omitempty"`
	LMS        *growth.LMS   `json:"lms,omitempty"`
	NoResult   bool          `json:"no_result"`
	Reason     string        `json:"reason,omitempty"`
}

func newPercentileResponse(q percentile.Query, res percentile.Result) percentileResponse {
	out := percentileResponse{
		Sex:       q.Sex,
		Metric:    q.Metric,
		AgeMonths: q.AgeMonths,
		Value:     number(q.Value),
		NoResult:  res.NoResult,
	}
	if res.NoResult {
		if res.Cause != nil {
			out.Reason = res.Cause.Error()
		}
		return out
	}
	lms := res.LMS
	out.ZScore = number(res.ZScore)
	out.Percentile = number(res.Percentile)
	out.LMS = &lms
	return out
}

// handlePercentile handles GET /percentile?sex=&metric=&age_months=&value=.
func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.PercentileFor(r.Context(), q.Sex, q.Metric, q.AgeMonths, q.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPercentileResponse(q, res))
}

func parseQuery(r *http.Request) (percentile.Query, error) {
	v := r.URL.Query()
	sex, err := growth.ParseSex(v.Get("sex"))
	if err != nil {
		return percentile.Query{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	metric, err := growth.ParseMetric(v.Get("metric"))
	if err != nil {
		return percentile.Query{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	age, err := param(v.Get("age_months"), "age_months")
	if err != nil {
		return percentile.Query{}, err
	}
	if math.IsNaN(age) || math.IsInf(age, 0) {
		return percentile.Query{}, fmt.Errorf("%w: age_months must be finite", ErrBadRequest)
	}
	value, err := param(v.Get("value"), "value")
	if err != nil {
		return percentile.Query{}, err
	}
	return percentile.Query{Sex: sex, Metric: metric, AgeMonths: age, Value: value}, nil
}

func param(raw, name string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadRequest, name, err)
	}
	return f, nil
}

// batchRequest mirrors the OpenAPI schema for POST /percentiles.
type batchRequest struct {
	Sex          string               `json:"sex"`
	Measurements []measurementRequest `json:"measurements"`
}

// measurementRequest is one row; a null or absent value is a missing measurement.
type measurementRequest struct {
	Metric    string   `json:"metric"`
	AgeMonths float64  `json:"age_months"`
	Value     *float64 `json:"value"`
}

type batchResponse struct {
	RunID   string               `json:"run_id"`
	Results []percentileResponse `json:"results"`
}

// handleBatch handles POST /percentiles. Rows whose table cannot be resolved come back as
// NoResult; the request fails only when no row resolved at all.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	queries, err := s.decodeBatch(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := s.deps.Batch(r.Context(), queries)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := batchResponse{RunID: RequestIDFrom(r.Context()), Results: make([]percentileResponse, len(results))}
	for i, res := range results {
		out.Results[i] = newPercentileResponse(queries[i], res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) decodeBatch(w http.ResponseWriter, r *http.Request) ([]percentile.Query, error) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: decode body: %w", ErrBadRequest, err)
	}
	sex, err := growth.ParseSex(req.Sex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if len(req.Measurements) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d measurements, limit %d", ErrBatchTooLarge, len(req.Measurements), s.maxBatch)
	}

	queries := make([]percentile.Query, len(req.Measurements))
	for i, m := range req.Measurements {
		// Unknown metrics are left for the engine to report per row.
		metric, err := growth.ParseMetric(m.Metric)
		if err != nil {
			metric = growth.Metric(m.Metric)
		}
		value := math.NaN()
		if m.Value != nil {
			value = *m.Value
		}
		queries[i] = percentile.Query{Sex: sex, Metric: metric, AgeMonths: m.AgeMonths, Value: value}
	}
	return queries, nil
}
