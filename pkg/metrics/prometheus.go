// Package metrics provides Prometheus metrics for the ladder service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the ladder service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion and aggregation
	matchesIngested    *prometheus.CounterVec
	matchProcessing    prometheus.Histogram
	participantUpdates *prometheus.CounterVec
	tournamentResults  prometheus.Counter

	// Ranking
	recalculations        *prometheus.CounterVec
	recalculationDuration *prometheus.HistogramVec
	rankedEntries         *prometheus.GaugeVec

	// Storage
	storeLatency *prometheus.HistogramVec
	storeEntries *prometheus.GaugeVec
	purgedTotal  prometheus.Counter

	// Read cache
	cacheRequests      *prometheus.CounterVec
	cacheInvalidations prometheus.Counter

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Broker consumer
	consumerMessages *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "ladder",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	latencyMs := []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	m.matchesIngested = auto.NewCounterVec(
		m.counterOpts("matches_ingested_total", "Completed matches received, by outcome"),
		[]string{"outcome"},
	)
	m.matchProcessing = auto.NewHistogram(
		m.histogramOpts("match_processing_milliseconds", "Time to aggregate one match into every leaderboard", latencyMs),
	)
	m.participantUpdates = auto.NewCounterVec(
		m.counterOpts("participant_updates_total", "Per-participant leaderboard updates, by leaderboard type and outcome"),
		[]string{"leaderboard_type", "outcome"},
	)
	m.tournamentResults = auto.NewCounter(
		m.counterOpts("tournament_results_total", "Tournament results applied to leaderboards"),
	)

	m.recalculations = auto.NewCounterVec(
		m.counterOpts("rank_recalculations_total", "Rank recalculations, by leaderboard type"),
		[]string{"leaderboard_type"},
	)
	m.recalculationDuration = auto.NewHistogramVec(
		m.histogramOpts("rank_recalculation_milliseconds", "Rank recalculation duration", latencyMs),
		[]string{"leaderboard_type"},
	)
	m.rankedEntries = auto.NewGaugeVec(
		m.gaugeOpts("ranked_entries", "Entries ranked by the last recalculation of a leaderboard type"),
		[]string{"leaderboard_type"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_operation_milliseconds", "Entry store operation latency", latencyMs),
		[]string{"backend", "operation"},
	)
	m.storeEntries = auto.NewGaugeVec(
		m.gaugeOpts("store_entries", "Leaderboard entries held by the store"),
		[]string{"backend"},
	)
	m.purgedTotal = auto.NewCounter(
		m.counterOpts("retention_purged_total", "Periodic entries deleted by retention cleanup"),
	)

	m.cacheRequests = auto.NewCounterVec(
		m.counterOpts("cache_requests_total", "Read cache lookups, by result"),
		[]string{"result"},
	)
	m.cacheInvalidations = auto.NewCounter(
		m.counterOpts("cache_invalidated_keys_total", "Cached responses dropped after writes"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Matches waiting in the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Ingestion queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Matches enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Matches dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(
		m.counterOpts("queue_enqueue_errors_total", "Matches rejected because the queue was full or closed"),
	)
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running ingestion workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker handling time per match", latencyMs),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Matches a worker failed to process"))

	m.consumerMessages = auto.NewCounterVec(
		m.counterOpts("consumer_messages_total", "Broker messages handled, by subject and acknowledgement"),
		[]string{"subject", "result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", latencyMs),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordMatchIngested counts a received match by outcome
// (accepted, duplicate, invalid, backpressure).
func RecordMatchIngested(outcome string) {
	globalManager.matchesIngested.WithLabelValues(outcome).Inc()
}

// RecordMatchProcessed records the time spent aggregating one match.
func RecordMatchProcessed(d time.Duration) {
	globalManager.matchProcessing.Observe(ms(d))
}

// RecordParticipantUpdate counts one participant update against one leaderboard type.
func RecordParticipantUpdate(leaderboardType, outcome string) {
	globalManager.participantUpdates.WithLabelValues(leaderboardType, outcome).Inc()
}

// RecordTournamentResult counts an applied tournament result.
func RecordTournamentResult() {
	globalManager.tournamentResults.Inc()
}

// RecordRecalculation records one rank recalculation.
func RecordRecalculation(leaderboardType string, entries int, d time.Duration) {
	globalManager.recalculations.WithLabelValues(leaderboardType).Inc()
	globalManager.recalculationDuration.WithLabelValues(leaderboardType).Observe(ms(d))
	globalManager.rankedEntries.WithLabelValues(leaderboardType).Set(float64(entries))
}

// RecordStoreLatency records the duration of one store operation.
func RecordStoreLatency(backend, op string, d time.Duration) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(ms(d))
}

// UpdateStoreEntries sets the entry count of a store backend.
func UpdateStoreEntries(backend string, n int) {
	globalManager.storeEntries.WithLabelValues(backend).Set(float64(n))
}

// RecordRetentionPurge counts entries removed by cleanup.
func RecordRetentionPurge(n int64) {
	globalManager.purgedTotal.Add(float64(n))
}

// RecordCacheHit counts a cache hit.
func RecordCacheHit() {
	globalManager.cacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss() {
	globalManager.cacheRequests.WithLabelValues("miss").Inc()
}

// RecordCacheError counts a failed cache call.
func RecordCacheError() {
	globalManager.cacheRequests.WithLabelValues("error").Inc()
}

// RecordCacheInvalidation counts dropped cache keys.
func RecordCacheInvalidation(keys int) {
	globalManager.cacheInvalidations.Add(float64(keys))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(d))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordConsumerMessage counts a broker message by subject and result (ack, nak, term).
func RecordConsumerMessage(subject, result string) {
	globalManager.consumerMessages.WithLabelValues(subject, result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval is how often gauges sampled outside the hot path are refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
