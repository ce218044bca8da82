// Package metrics provides Prometheus metrics for the mahjong ledger service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Append outcomes used as label values.
const (
	OutcomeAppended  = "appended"
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFull      = "full"
	OutcomeFailed    = "failed"
)

// Manager manages all Prometheus metrics for the ledger service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ledger snapshot
	ledgerLoads        *prometheus.CounterVec
	ledgerLoadDuration prometheus.Histogram
	ledgerLastLoadUnix prometheus.Gauge
	sheetsLoaded       prometheus.Gauge
	sheetsSkipped      *prometheus.CounterVec
	ledgerEvents       prometheus.Gauge
	ledgerPlayers      prometheus.Gauge

	// Writes
	appends       *prometheus.CounterVec
	appendLatency prometheus.Histogram

	// Reads
	statsQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mjledger",
		subsystem:        "ledger",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.ledgerLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "loads_total",
		Help:        "Total number of ledger loads by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.ledgerLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "load_duration_milliseconds",
		Help:        "Duration of a full ledger load in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.ledgerLastLoadUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_load_unix",
		Help:        "Unix timestamp of the last successful ledger load",
		ConstLabels: labels,
	})

	m.sheetsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sheets_loaded",
		Help:        "Number of session sheets parsed by the last load",
		ConstLabels: labels,
	})

	m.sheetsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sheets_skipped_total",
		Help:        "Sheets skipped during loads by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.ledgerEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events",
		Help:        "Number of events in the current snapshot",
		ConstLabels: labels,
	})

	m.ledgerPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players",
		Help:        "Number of distinct players in the current snapshot",
		ConstLabels: labels,
	})

	m.appends = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "appends_total",
		Help:        "Record submissions by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.appendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "append_latency_milliseconds",
		Help:        "Latency of write-then-reload cycles in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.statsQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stats_query_latency_milliseconds",
		Help:        "Latency of stats computations by view",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"view"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_rate_limited_total",
		Help:        "Requests rejected by the rate limiter",
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Total number of errors by component",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of errors by endpoint",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap memory in use in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})
}

// RecordLedgerLoad records a completed load and refreshes the snapshot gauges.
func (m *Manager) RecordLedgerLoad(d time.Duration, sheets, events int) {
	m.ledgerLoads.WithLabelValues("ok").Inc()
	m.ledgerLoadDuration.Observe(float64(d.Microseconds()) / 1000)
	m.ledgerLastLoadUnix.Set(float64(time.Now().Unix()))
	m.sheetsLoaded.Set(float64(sheets))
	m.ledgerEvents.Set(float64(events))
}

// RecordLedgerLoadError counts a load that failed outright.
func (m *Manager) RecordLedgerLoadError() {
	m.ledgerLoads.WithLabelValues("error").Inc()
}

// RecordSheetSkipped counts a sheet left out of a load.
func (m *Manager) RecordSheetSkipped(reason string) {
	m.sheetsSkipped.WithLabelValues(reason).Inc()
}

// UpdateLedgerPlayers sets the distinct player gauge.
func (m *Manager) UpdateLedgerPlayers(n int) {
	m.ledgerPlayers.Set(float64(n))
}

// RecordAppend counts a submission by outcome.
func (m *Manager) RecordAppend(outcome string) {
	m.appends.WithLabelValues(outcome).Inc()
}

// RecordAppendLatency records the write-then-reload latency.
func (m *Manager) RecordAppendLatency(latencyMs float64) {
	m.appendLatency.Observe(latencyMs)
}

// RecordStatsQuery records the latency of one stats view.
func (m *Manager) RecordStatsQuery(view string, latencyMs float64) {
	m.statsQueryLatency.WithLabelValues(view).Observe(latencyMs)
}

// RecordLedgerLoad records a completed load on the global manager.
func RecordLedgerLoad(d time.Duration, sheets, events int) {
	globalManager.RecordLedgerLoad(d, sheets, events)
}

// RecordLedgerLoadError counts a failed load on the global manager.
func RecordLedgerLoadError() {
	globalManager.RecordLedgerLoadError()
}

// RecordSheetSkipped counts a skipped sheet on the global manager.
func RecordSheetSkipped(reason string) {
	globalManager.RecordSheetSkipped(reason)
}

// UpdateLedgerPlayers sets the distinct player gauge on the global manager.
func UpdateLedgerPlayers(n int) {
	globalManager.UpdateLedgerPlayers(n)
}

// RecordAppend counts a submission outcome on the global manager.
func RecordAppend(outcome string) {
	globalManager.RecordAppend(outcome)
}

// RecordAppendLatency records append latency on the global manager.
func RecordAppendLatency(latencyMs float64) {
	globalManager.RecordAppendLatency(latencyMs)
}

// RecordStatsQuery records stats latency on the global manager.
func RecordStatsQuery(view string, latencyMs float64) {
	globalManager.RecordStatsQuery(view, latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
