// Package metrics provides Prometheus metrics for the cragboard scoreboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSaved     = "saved"
	OutcomeMissing   = "missing_fields"
	OutcomeInvalid   = "invalid_sequence"
	OutcomeDuplicate = "duplicate"
	OutcomeStorage   = "storage_failure"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Competition
	submissions  *prometheus.CounterVec
	resultsTotal prometheus.Gauge
	topsTotal    prometheus.Gauge
	rosterSize   prometheus.Gauge
	rosterLoads  *prometheus.CounterVec

	// Store
	storeAppendLatency prometheus.Histogram
	storeListLatency   prometheus.Histogram
	storeErrors        *prometheus.CounterVec

	// Broadcast
	broadcastQueueSize     prometheus.Gauge
	broadcastQueueCapacity prometheus.Gauge
	broadcastPublished     prometheus.Counter
	broadcastDropped       *prometheus.CounterVec
	broadcastSubscribers   prometheus.Gauge
	broadcastWorkers       prometheus.Gauge
	broadcastLatency       prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cragboard",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(
		m.counterOpts("submissions_total", "Result submissions by outcome"),
		[]string{"outcome"},
	)
	m.resultsTotal = auto.NewGauge(m.gaugeOpts("results_total", "Number of persisted results"))
	m.topsTotal = auto.NewGauge(m.gaugeOpts("tops_total", "Number of persisted results with a top"))
	m.rosterSize = auto.NewGauge(m.gaugeOpts("roster_climbers", "Number of climbers in the roster"))
	m.rosterLoads = auto.NewCounterVec(
		m.counterOpts("roster_loads_total", "Roster loads by source (startup, upload, watch) and status"),
		[]string{"source", "status"},
	)

	m.storeAppendLatency = auto.NewHistogram(m.histogramOpts(
		"store_append_latency_milliseconds", "Result store append latency in milliseconds", nil))
	m.storeListLatency = auto.NewHistogram(m.histogramOpts(
		"store_list_latency_milliseconds", "Result store full scan latency in milliseconds", nil))
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Result store errors by operation"),
		[]string{"operation"},
	)

	m.broadcastQueueSize = auto.NewGauge(m.gaugeOpts("broadcast_queue_size", "Pending live events"))
	m.broadcastQueueCapacity = auto.NewGauge(m.gaugeOpts("broadcast_queue_capacity", "Capacity of the live event queue"))
	m.broadcastPublished = auto.NewCounter(m.counterOpts("broadcast_published_total", "Live events handed to the publisher"))
	m.broadcastDropped = auto.NewCounterVec(
		m.counterOpts("broadcast_dropped_total", "Live events or deliveries dropped, by reason"),
		[]string{"reason"},
	)
	m.broadcastSubscribers = auto.NewGauge(m.gaugeOpts("broadcast_subscribers", "Connected live viewers"))
	m.broadcastWorkers = auto.NewGauge(m.gaugeOpts("broadcast_workers", "Broadcast dispatch workers"))
	m.broadcastLatency = auto.NewHistogram(m.histogramOpts(
		"broadcast_publish_latency_milliseconds", "Time spent publishing one live event", nil))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordSubmission counts one submission with the given outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// UpdateResultsTotal sets the number of persisted results and tops.
func UpdateResultsTotal(results, tops int) {
	globalManager.resultsTotal.Set(float64(results))
	globalManager.topsTotal.Set(float64(tops))
}

// UpdateRosterSize sets the number of climbers in the roster.
func UpdateRosterSize(count int) {
	globalManager.rosterSize.Set(float64(count))
}

// RecordRosterLoad counts one roster load attempt.
func RecordRosterLoad(source, status string) {
	globalManager.rosterLoads.WithLabelValues(source, status).Inc()
}

// RecordStoreAppendLatency records an append latency in milliseconds.
func RecordStoreAppendLatency(latencyMs float64) {
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordStoreListLatency records a full scan latency in milliseconds.
func RecordStoreListLatency(latencyMs float64) {
	globalManager.storeListLatency.Observe(latencyMs)
}

// RecordStoreError counts a store failure for the operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// UpdateBroadcastQueue sets the live queue size and capacity.
func UpdateBroadcastQueue(size, capacity int) {
	globalManager.broadcastQueueSize.Set(float64(size))
	globalManager.broadcastQueueCapacity.Set(float64(capacity))
}

// RecordBroadcastPublished counts an event handed to the publisher.
func RecordBroadcastPublished(latencyMs float64) {
	globalManager.broadcastPublished.Inc()
	globalManager.broadcastLatency.Observe(latencyMs)
}

// RecordBroadcastDropped counts a dropped event or delivery.
func RecordBroadcastDropped(reason string) {
	globalManager.broadcastDropped.WithLabelValues(reason).Inc()
}

// UpdateBroadcastSubscribers sets the number of connected viewers.
func UpdateBroadcastSubscribers(count int) {
	globalManager.broadcastSubscribers.Set(float64(count))
}

// UpdateBroadcastWorkers sets the number of dispatch workers.
func UpdateBroadcastWorkers(count int) {
	globalManager.broadcastWorkers.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Since returns the elapsed time since start in milliseconds.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
