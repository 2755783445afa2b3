// Package metrics provides Prometheus metrics for the growth percentile service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	zscoreBuckets  []float64
	enabled        bool
	customLabels   map[string]string
	registry       prometheus.Registerer

	// Engine
	percentiles       *prometheus.CounterVec
	zscores           *prometheus.HistogramVec
	lookupErrors      *prometheus.CounterVec
	domainErrors      *prometheus.CounterVec
	computationErrors *prometheus.CounterVec
	batchRows         prometheus.Histogram

	// Reference tables
	tablesLoaded  prometheus.Gauge
	tableRows     *prometheus.GaugeVec
	loadDuration  prometheus.Histogram
	loaderRejects *prometheus.CounterVec

	// Downloads
	downloads     *prometheus.CounterVec
	downloadBytes prometheus.Counter

	// Ingestion
	rowsIngested *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "growth",
		subsystem:      "percentile",
		latencyBuckets: prometheus.DefBuckets,
		zscoreBuckets:  []float64{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5},
		enabled:        true,
		customLabels:   make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.percentiles = m.counterVec("computations_total",
		"Percentile computations by metric and outcome (ok, no_result, error)", "metric", "outcome")

	m.zscores = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "zscore",
		Help:        "Distribution of computed z-scores by metric",
		Buckets:     m.zscoreBuckets,
		ConstLabels: m.customLabels,
	}, []string{"metric"})

	m.lookupErrors = m.counterVec("lookup_errors_total",
		"Table resolutions that failed (unknown sex/metric or uncovered age)", "metric")

	m.domainErrors = m.counterVec("domain_errors_total",
		"Interpolations outside a resolved table's tabulated range", "metric")

	m.computationErrors = m.counterVec("computation_errors_total",
		"Z-score formulas that faulted (zero L/S or non-finite intermediate)", "metric")

	m.batchRows = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_rows",
		Help:        "Rows per batch computation",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		ConstLabels: m.customLabels,
	})

	m.tablesLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "tables",
		Name:        "loaded",
		Help:        "Number of reference partitions held by the repository",
		ConstLabels: m.customLabels,
	})

	m.tableRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "tables",
		Name:        "rows",
		Help:        "Tabulated ages per sex and metric",
		ConstLabels: m.customLabels,
	}, []string{"sex", "metric"})

	m.loadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "tables",
		Name:        "load_duration_milliseconds",
		Help:        "Time spent loading reference tables from disk",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.customLabels,
	})

	m.loaderRejects = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "tables",
		Name:        "rejected_files_total",
		Help:        "Reference files skipped by the loader",
		ConstLabels: m.customLabels,
	}, []string{"reason"})

	m.downloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "download",
		Name:        "datasets_total",
		Help:        "WHO dataset downloads by status (ok, skipped, failed)",
		ConstLabels: m.customLabels,
	}, []string{"status"})

	m.downloadBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "download",
		Name:        "bytes_total",
		Help:        "Bytes written by the downloader",
		ConstLabels: m.customLabels,
	})

	m.rowsIngested = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "ingest",
		Name:        "rows_total",
		Help:        "Measurement rows read by format",
		ConstLabels: m.customLabels,
	}, []string{"format"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "errors_total",
		Help:        "HTTP error responses by endpoint and error type",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.customLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.customLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     prometheus.ExponentialBuckets(0.01, 4, 8),
		ConstLabels: m.customLabels,
	})
}

// RecordPercentile counts a computation outcome for metric.
func (m *Manager) RecordPercentile(metric, outcome string) {
	if m.enabled {
		m.percentiles.WithLabelValues(metric, outcome).Inc()
	}
}

// ObserveZScore records a computed z-score for metric.
func (m *Manager) ObserveZScore(metric string, z float64) {
	if m.enabled {
		m.zscores.WithLabelValues(metric).Observe(z)
	}
}

// RecordPercentile counts a computation outcome on the global manager.
func RecordPercentile(metric, outcome string) { globalManager.RecordPercentile(metric, outcome) }

// ObserveZScore records a z-score on the global manager.
func ObserveZScore(metric string, z float64) { globalManager.ObserveZScore(metric, z) }

// RecordLookupError counts a failed table resolution.
func RecordLookupError(metric string) {
	if globalManager.enabled {
		globalManager.lookupErrors.WithLabelValues(metric).Inc()
	}
}

// RecordDomainError counts an interpolation outside a tabulated range.
func RecordDomainError(metric string) {
	if globalManager.enabled {
		globalManager.domainErrors.WithLabelValues(metric).Inc()
	}
}

// RecordComputationError counts a faulted z-score formula.
func RecordComputationError(metric string) {
	if globalManager.enabled {
		globalManager.computationErrors.WithLabelValues(metric).Inc()
	}
}

// ObserveBatchRows records the size of a batch computation.
func ObserveBatchRows(rows int) {
	if globalManager.enabled {
		globalManager.batchRows.Observe(float64(rows))
	}
}

// UpdateTablesLoaded sets the number of loaded partitions.
func UpdateTablesLoaded(count int) {
	if globalManager.enabled {
		globalManager.tablesLoaded.Set(float64(count))
	}
}

// UpdateTableRows sets the tabulated age count for a sex/metric pair.
func UpdateTableRows(sex, metric string, rows int) {
	if globalManager.enabled {
		globalManager.tableRows.WithLabelValues(sex, metric).Set(float64(rows))
	}
}

// RecordTableLoadDuration records how long a table load took.
func RecordTableLoadDuration(durationMs float64) {
	if globalManager.enabled {
		globalManager.loadDuration.Observe(durationMs)
	}
}

// RecordLoaderReject counts a reference file the loader skipped.
func RecordLoaderReject(reason string) {
	if globalManager.enabled {
		globalManager.loaderRejects.WithLabelValues(reason).Inc()
	}
}

// RecordDownload counts a dataset download by status.
func RecordDownload(status string) {
	if globalManager.enabled {
		globalManager.downloads.WithLabelValues(status).Inc()
	}
}

// AddDownloadBytes adds n written bytes.
func AddDownloadBytes(n int64) {
	if globalManager.enabled && n > 0 {
		globalManager.downloadBytes.Add(float64(n))
	}
}

// RecordRowsIngested adds n rows for an input format.
func RecordRowsIngested(format string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.rowsIngested.WithLabelValues(format).Add(float64(n))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, errorType string) {
	if globalManager.enabled {
		globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if globalManager.enabled {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
