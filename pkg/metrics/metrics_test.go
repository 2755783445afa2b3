package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithLatencyBuckets([]float64{1, 5, 10}),
				WithZScoreBuckets([]float64{-3, 0, 3}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then computations are counted with the custom names", func() {
				manager.RecordPercentile("bmi", "ok")
				manager.RecordPercentile("bmi", "ok")
				So(testutil.ToFloat64(manager.percentiles.WithLabelValues("bmi", "ok")), ShouldEqual, 2.0)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_engine_computations_total")
			})
		})

		Convey("When metrics are disabled", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
			manager.RecordPercentile("weight", "ok")
			manager.ObserveZScore("weight", 1.0)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(manager.percentiles.WithLabelValues("weight", "ok")), ShouldEqual, 0.0)
			})
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording engine metrics", func() {
			before := testutil.ToFloat64(globalManager.computationErrors.WithLabelValues("height"))
			So(func() {
				RecordPercentile("height", "no_result")
				ObserveZScore("height", -1.2)
				RecordLookupError("height")
				RecordDomainError("height")
				RecordComputationError("height")
				ObserveBatchRows(12)
			}, ShouldNotPanic)

			Convey("Then counters advance", func() {
				So(testutil.ToFloat64(globalManager.computationErrors.WithLabelValues("height")), ShouldEqual, before+1)
			})
		})

		Convey("When recording table, download and ingest metrics", func() {
			So(func() {
				UpdateTablesLoaded(12)
				UpdateTableRows("female", "bmi", 85)
				RecordTableLoadDuration(4.2)
				RecordLoaderReject("bad_name")
				RecordDownload("ok")
				AddDownloadBytes(2048)
				AddDownloadBytes(-1)
				RecordRowsIngested("standard", 3)
			}, ShouldNotPanic)

			So(testutil.ToFloat64(globalManager.tablesLoaded), ShouldEqual, 12.0)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/percentile", "GET", "200")
				RecordHTTPRequestDuration("/percentile", "GET", "200", 1.5)
				RecordHTTPError("percentile", "not_found")
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.httpErrors.WithLabelValues("percentile", "not_found")), ShouldBeGreaterThanOrEqualTo, 1.0)
		})

		Convey("When recording process metrics", func() {
			UpdateSystemMemoryUsage(2048)
			UpdateSystemGoroutineCount(7)
			RecordSystemGCPauseTime(0.3)
			So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 2048.0)
			So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 7.0)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
