// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission path
	submissionsAccepted  prometheus.Counter
	submissionsDuplicate prometheus.Counter
	submissionsRejected  prometheus.Counter
	personalBests        prometheus.Counter
	consistencyFaults    prometheus.Counter

	// Reconciliation
	reconcileRetries prometheus.Counter
	reconcileDropped prometheus.Counter

	// Read path
	leaderboardQueries prometheus.Counter
	historyQueries     prometheus.Counter

	// Operational health
	ledgerSize  prometheus.Gauge
	queueSize   prometheus.Gauge
	queueCap    prometheus.Gauge
	workerCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global manager on a custom registry, so the default Go collectors do
// not pollute the scrape output.
var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton metrics registry
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton metrics manager
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "beatfall",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissionsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_accepted_total",
		Help: "Total number of accepted score submissions",
	})
	m.submissionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_duplicate_total",
		Help: "Total number of submissions rejected as idempotency-token replays",
	})
	m.submissionsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_rejected_total",
		Help: "Total number of submissions rejected by validation",
	})
	m.personalBests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "personal_bests_total",
		Help: "Total number of submissions flagged as a personal best",
	})
	m.consistencyFaults = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "consistency_faults_total",
		Help: "Ledger appends whose aggregate update failed and went to reconciliation",
	})
	m.reconcileRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_retries_total",
		Help: "Total number of aggregate delta retry attempts",
	})
	m.reconcileDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_dropped_total",
		Help: "Aggregate deltas abandoned after exhausting retries",
	})
	m.leaderboardQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "leaderboard_queries_total",
		Help: "Total number of leaderboard window queries",
	})
	m.historyQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "history_queries_total",
		Help: "Total number of account history queries",
	})
	m.ledgerSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_records",
		Help: "Number of score records in the ledger (in-memory backend only)",
	})
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_queue_size",
		Help: "Current depth of the reconciliation queue",
	})
	m.queueCap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_queue_capacity",
		Help: "Configured capacity of the reconciliation queue",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_workers",
		Help: "Number of reconciliation workers",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_errors_total",
		Help: "Total number of HTTP error responses by endpoint and class",
	}, []string{"endpoint", "method", "error_type"})
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_bytes",
		Help: "Current allocated heap bytes",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutines",
		Help: "Current number of goroutines",
	})
}

// GetRegistry returns the registry the global manager registers on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers on the global manager.

func RecordSubmissionAccepted()  { globalManager.submissionsAccepted.Inc() }
func RecordSubmissionDuplicate() { globalManager.submissionsDuplicate.Inc() }
func RecordSubmissionRejected()  { globalManager.submissionsRejected.Inc() }
func RecordPersonalBest()        { globalManager.personalBests.Inc() }
func RecordConsistencyFault()    { globalManager.consistencyFaults.Inc() }
func RecordReconcileRetry()      { globalManager.reconcileRetries.Inc() }
func RecordReconcileDropped()    { globalManager.reconcileDropped.Inc() }
func RecordLeaderboardQuery()    { globalManager.leaderboardQueries.Inc() }
func RecordHistoryQuery()        { globalManager.historyQueries.Inc() }

func UpdateLedgerSize(n int)        { globalManager.ledgerSize.Set(float64(n)) }
func UpdateQueueSize(n int)         { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)     { globalManager.queueCap.Set(float64(n)) }
func UpdateWorkerCount(n int)       { globalManager.workerCount.Set(float64(n)) }
func UpdateSystemMemoryUsage(b uint64) { globalManager.systemMemoryUsage.Set(float64(b)) }
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the duration of a completed request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}
