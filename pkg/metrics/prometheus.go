// Package metrics provides Prometheus metrics for the dilemma tournament service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the tournament service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Tournament lifecycle
	tournamentsStarted  prometheus.Counter
	tournamentsFinished prometheus.Counter
	tournamentsFailed   *prometheus.CounterVec
	tournamentsActive   prometheus.Gauge
	tournamentDuration  prometheus.Histogram
	duplicateRuns       prometheus.Counter
	progressWrites      prometheus.Counter

	// Match play
	matchesPlayed    prometheus.Counter
	roundsPlayed     prometheus.Counter
	matchLength      prometheus.Histogram
	decisionLatency  prometheus.Histogram
	strategyForfeits *prometheus.CounterVec

	// Persistence
	persistenceErrors  *prometheus.CounterVec
	persistenceRetries *prometheus.CounterVec
	cleanupDeleted     prometheus.Counter
	cleanupFailed      prometheus.Counter
	notifyErrors       prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

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
		namespace:        "dilemma",
		subsystem:        "tournament",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.tournamentsStarted = m.counter("started_total", "Total number of tournament runs started")
	m.tournamentsFinished = m.counter("finished_total", "Total number of tournament runs that published results")
	m.tournamentsFailed = m.counterVec("failed_total", "Total number of tournament runs aborted, by stage", "stage")
	m.tournamentsActive = m.gauge("active", "Number of tournament runs in flight")
	m.tournamentDuration = m.histogram("duration_milliseconds", "Tournament run duration in milliseconds",
		prometheus.ExponentialBuckets(10, 4, 10))
	m.duplicateRuns = m.counter("duplicate_runs_total", "Run requests dropped because the session was already running")
	m.progressWrites = m.counter("progress_writes_total", "Number of progress status writes")

	m.matchesPlayed = m.counter("matches_played_total", "Total number of matches played")
	m.roundsPlayed = m.counter("rounds_played_total", "Total number of rounds played")
	m.matchLength = m.histogram("match_length_rounds", "Number of rounds per match",
		[]float64{1, 10, 50, 100, 200, 400, 700, 1000})
	m.decisionLatency = m.histogram("decision_latency_milliseconds", "Strategy decision latency in milliseconds",
		m.histogramBuckets)
	m.strategyForfeits = m.counterVec("strategy_forfeits_total", "Rounds forfeited by a strategy, by reason", "reason")

	m.persistenceErrors = m.counterVec("persistence_errors_total", "Storage operations that failed, by operation", "op")
	m.persistenceRetries = m.counterVec("persistence_retries_total", "Storage operations retried, by operation", "op")
	m.cleanupDeleted = m.counter("cleanup_deleted_total", "Match records removed after publication")
	m.cleanupFailed = m.counter("cleanup_failed_chunks_total", "Cleanup chunks that failed after retry")
	m.notifyErrors = m.counter("notify_errors_total", "Status notifications that could not be delivered")

	m.queueSize = m.gauge("queue_size", "Current size of the match task queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the match task queue")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of match tasks enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of match tasks dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers playing matches")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to play and persist one match in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordTournamentStarted counts a run and marks it active.
func RecordTournamentStarted() {
	globalManager.tournamentsStarted.Inc()
	globalManager.tournamentsActive.Inc()
}

// RecordTournamentFinished counts a published run.
func RecordTournamentFinished(durationMs float64) {
	globalManager.tournamentsFinished.Inc()
	globalManager.tournamentsActive.Dec()
	globalManager.tournamentDuration.Observe(durationMs)
}

// RecordTournamentFailed counts a run aborted at stage.
func RecordTournamentFailed(stage string) {
	globalManager.tournamentsFailed.WithLabelValues(stage).Inc()
	globalManager.tournamentsActive.Dec()
}

// RecordDuplicateRun increments the duplicate run counter.
func RecordDuplicateRun() {
	globalManager.duplicateRuns.Inc()
}

// RecordProgressWrite increments the progress write counter.
func RecordProgressWrite() {
	globalManager.progressWrites.Inc()
}

// RecordMatchPlayed records a completed match of the given length.
func RecordMatchPlayed(rounds int) {
	globalManager.matchesPlayed.Inc()
	globalManager.roundsPlayed.Add(float64(rounds))
	globalManager.matchLength.Observe(float64(rounds))
}

// RecordDecisionLatency records how long one strategy call took.
func RecordDecisionLatency(latencyMs float64) {
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordStrategyForfeit counts a forfeited round.
func RecordStrategyForfeit(reason string) {
	globalManager.strategyForfeits.WithLabelValues(reason).Inc()
}

// RecordPersistenceError counts a failed storage operation.
func RecordPersistenceError(op string) {
	globalManager.persistenceErrors.WithLabelValues(op).Inc()
}

// RecordPersistenceRetry counts a retried storage operation.
func RecordPersistenceRetry(op string) {
	globalManager.persistenceRetries.WithLabelValues(op).Inc()
}

// RecordCleanupDeleted adds n to the deleted match counter.
func RecordCleanupDeleted(n int) {
	globalManager.cleanupDeleted.Add(float64(n))
}

// RecordCleanupFailedChunk increments the failed chunk counter.
func RecordCleanupFailedChunk() {
	globalManager.cleanupFailed.Inc()
}

// RecordNotifyError increments the notification error counter.
func RecordNotifyError() {
	globalManager.notifyErrors.Inc()
}

// Queue Metrics Functions.

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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// AddWorkerActive adjusts the number of active workers by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
