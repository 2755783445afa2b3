package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/growthchart/internal/adapters/http/api"
	"github.com/okian/growthchart/internal/adapters/repository"
	"github.com/okian/growthchart/internal/domain/growth"
	"github.com/okian/growthchart/internal/domain/percentile"
	"github.com/okian/growthchart/internal/domain/reference"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies answers from canned values and records what it was asked.
type mockDependencies struct {
	result   percentile.Result
	err      error
	batchErr error
	parts    []repository.Partition
	rows     []growth.Row
	curveErr error

	queries []percentile.Query
}

func (m *mockDependencies) PercentileFor(_ context.Context, sex growth.Sex, metric growth.Metric, age, value float64) (percentile.Result, error) {
	m.queries = append(m.queries, percentile.Query{Sex: sex, Metric: metric, AgeMonths: age, Value: value})
	return m.result, m.err
}

func (m *mockDependencies) Batch(_ context.Context, qs []percentile.Query) ([]percentile.Result, error) {
	m.queries = append(m.queries, qs...)
	out := make([]percentile.Result, len(qs))
	for i, q := range qs {
		if math.IsNaN(q.Value) {
			out[i] = percentile.None(growth.ErrValidation)
			continue
		}
		out[i] = m.result
	}
	return out, m.batchErr
}

func (m *mockDependencies) Tables(context.Context) []repository.Partition { return m.parts }

func (m *mockDependencies) Curve(context.Context, growth.Sex, growth.Metric) ([]growth.Row, error) {
	return m.rows, m.curveErr
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"tables": 1}}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func partition(sex growth.Sex, metric growth.Metric) repository.Partition {
	table, err := reference.NewTable([]growth.Row{
		{Month: 0, LMS: growth.LMS{L: 1, M: 49.9, S: 0.038}},
		{Month: 24, LMS: growth.LMS{L: 1, M: 87.1, S: 0.035}},
	})
	So(err, ShouldBeNil)
	return repository.Partition{
		Key:    repository.Key{Sex: sex, Metric: metric, Range: growth.AgeRange{MinYears: 0, MaxYears: 2}},
		Table:  table,
		Source: "lhfa.boys.0_2.xlsx",
	}
}

func TestPercentileEndpoint(t *testing.T) {
	Convey("Given a server with a percentile source", t, func() {
		deps := &mockDependencies{result: percentile.Result{
			ZScore: 1.47, Percentile: 92.9, LMS: growth.LMS{L: -1.6318, M: 16.049, S: 0.10038},
		}}
		mux := newMux(deps)

		Convey("When a valid query is made", func() {
			w := do(mux, http.MethodGet, "/percentile?sex=boy&metric=bmi&age_months=12&value=19", "")

			Convey("Then the result is returned with parsed arguments", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["sex"], ShouldEqual, "male")
				So(body["metric"], ShouldEqual, "bmi")
				So(body["percentile"], ShouldEqual, 92.9)
				So(body["no_result"], ShouldBeFalse)
				So(deps.queries, ShouldResemble, []percentile.Query{
					{Sex: growth.Male, Metric: growth.BMI, AgeMonths: 12, Value: 19},
				})
			})

			Convey("And a request id is assigned", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
			})
		})

		Convey("When the caller supplies a request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/percentile?sex=f&metric=wfa&age_months=3&value=6", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("When the engine reports no result", func() {
			deps.result = percentile.None(fmt.Errorf("%w: value is NaN", growth.ErrValidation))
			w := do(mux, http.MethodGet, "/percentile?sex=m&metric=weight&age_months=3&value=NaN", "")

			Convey("Then NaN numbers are omitted and the reason given", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["no_result"], ShouldBeTrue)
				So(body["value"], ShouldBeNil)
				So(body, ShouldNotContainKey, "percentile")
				So(body["reason"], ShouldContainSubstring, "invalid measurement")
			})
		})

		Convey("When arguments are malformed", func() {
			for _, target := range []string{
				"/percentile?sex=x&metric=bmi&age_months=12&value=19",
				"/percentile?sex=m&metric=armspan&age_months=12&value=19",
				"/percentile?sex=m&metric=bmi&value=19",
				"/percentile?sex=m&metric=bmi&age_months=Inf&value=19",
				"/percentile?sex=m&metric=bmi&age_months=12&value=abc",
			} {
				w := do(mux, http.MethodGet, target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When no table covers the age", func() {
			deps.err = fmt.Errorf("%w: no partition", growth.ErrLookup)
			w := do(mux, http.MethodGet, "/percentile?sex=m&metric=bmi&age_months=900&value=19", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the age is outside the tabulated range", func() {
			deps.err = fmt.Errorf("%w: 64 months", growth.ErrDomain)
			w := do(mux, http.MethodGet, "/percentile?sex=m&metric=bmi&age_months=64&value=19", "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When the source fails unexpectedly", func() {
			deps.err = errors.New("disk on fire")
			w := do(mux, http.MethodGet, "/percentile?sex=m&metric=bmi&age_months=12&value=19", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["request_id"], ShouldNotBeEmpty)
		})

		Convey("When the wrong method is used", func() {
			w := do(mux, http.MethodPost, "/percentile", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestBatchEndpoint(t *testing.T) {
	Convey("Given a server with a batch source", t, func() {
		deps := &mockDependencies{result: percentile.Result{ZScore: 0, Percentile: 50}}
		mux := newMux(deps, api.WithMaxBatchSize(3))

		Convey("When a batch is posted", func() {
			w := do(mux, http.MethodPost, "/percentiles", `{"sex":"female","measurements":[
				{"metric":"weight","age_months":1,"value":4.2},
				{"metric":"height","age_months":1},
				{"metric":"armspan","age_months":1,"value":30}
			]}`)

			Convey("Then one result per row is returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["run_id"], ShouldEqual, w.Header().Get(api.RequestIDHeader))
				results := body["results"].([]any)
				So(len(results), ShouldEqual, 3)
				So(results[0].(map[string]any)["percentile"], ShouldEqual, 50.0)
				So(results[1].(map[string]any)["no_result"], ShouldBeTrue)
			})

			Convey("And missing values and unknown metrics are passed through", func() {
				So(len(deps.queries), ShouldEqual, 3)
				So(math.IsNaN(deps.queries[1].Value), ShouldBeTrue)
				So(deps.queries[2].Metric, ShouldEqual, growth.Metric("armspan"))
			})
		})

		Convey("When the batch exceeds the limit", func() {
			w := do(mux, http.MethodPost, "/percentiles", `{"sex":"m","measurements":[
				{"metric":"bmi","age_months":1,"value":1},{"metric":"bmi","age_months":2,"value":1},
				{"metric":"bmi","age_months":3,"value":1},{"metric":"bmi","age_months":4,"value":1}]}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(deps.queries, ShouldBeEmpty)
		})

		Convey("When the body is malformed", func() {
			So(do(mux, http.MethodPost, "/percentiles", `{"sex":`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/percentiles", `{"sex":"m","extra":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/percentiles", `{"sex":"?","measurements":[]}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When no row resolves a table", func() {
			deps.batchErr = fmt.Errorf("%w: 1 rows", growth.ErrNoTableResolved)
			w := do(mux, http.MethodPost, "/percentiles", `{"sex":"m","measurements":[{"metric":"bmi","age_months":900,"value":1}]}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestTablesEndpoints(t *testing.T) {
	Convey("Given a server with loaded tables", t, func() {
		deps := &mockDependencies{
			parts: []repository.Partition{partition(growth.Male, growth.Height)},
			rows: []growth.Row{
				{Month: 0, LMS: growth.LMS{L: 1, M: 49.9, S: 0.038}, Curves: growth.Curves{
					45.5, 46.8, 47.5, 48.6, 49.9, 51.2, 52.3, 53.0, 54.3,
				}},
				{Month: 1, LMS: growth.LMS{L: 1, M: 54.7, S: 0.036}, Curves: growth.Curves{
					math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
				}},
			},
		}
		mux := newMux(deps)

		Convey("When listing tables", func() {
			w := do(mux, http.MethodGet, "/tables", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["count"], ShouldEqual, 1.0)
			p := body["partitions"].([]any)[0].(map[string]any)
			So(p["age_range"], ShouldEqual, "0_2")
			So(p["rows"], ShouldEqual, 2.0)
			So(p["max_month"], ShouldEqual, 24.0)
		})

		Convey("When reading a curve", func() {
			w := do(mux, http.MethodGet, "/tables/boys/lhfa", "")

			Convey("Then rows carry LMS and the tabulated percentiles", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["metric"], ShouldEqual, "height")
				So(body["unit"], ShouldEqual, "cm")
				rows := body["rows"].([]any)
				first := rows[0].(map[string]any)
				So(first["m"], ShouldEqual, 49.9)
				So(first["percentiles"].(map[string]any)["p50"], ShouldEqual, 49.9)
				So(rows[1].(map[string]any), ShouldNotContainKey, "percentiles")
			})
		})

		Convey("When the curve path is invalid", func() {
			So(do(mux, http.MethodGet, "/tables/x/lhfa", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the curve is not loaded", func() {
			deps.curveErr = growth.ErrLookup
			So(do(mux, http.MethodGet, "/tables/girls/bmi", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When no tables are loaded", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When tables are loaded", func() {
			deps.parts = []repository.Partition{partition(growth.Female, growth.Height)}
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["tables"], ShouldEqual, 1.0)
		})

		Convey("When reading stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["tables"], ShouldEqual, 1.0)
		})

		Convey("When scraping metrics", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "growth_http_requests_total")
		})

		Convey("When the route is unknown", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
