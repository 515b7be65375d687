// Package metrics provides Prometheus metrics for the face attribute service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as label values for stage_duration_milliseconds.
const (
	StageDecode  = "decode"
	StageDetect  = "detect"
	StageAlign   = "align"
	StageInfer   = "infer"
	StagePersist = "persist"
)

// stageBuckets covers a fast decode (~1ms) up to a slow CPU CNN detection (~5s).
var stageBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Pipeline Metrics
	analyses      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	facesDetected prometheus.Histogram
	archiveWrites *prometheus.CounterVec
	cleanupRuns   *prometheus.CounterVec

	// Background Queue Metrics
	queueSize         *prometheus.GaugeVec
	queueDrops        *prometheus.CounterVec
	workerJobs        *prometheus.CounterVec
	workerJobDuration *prometheus.HistogramVec
	workerActive      *prometheus.GaugeVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "faceattr",
		subsystem:        "api",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analyses_total",
		Help:        "Total number of analyze-face requests by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_milliseconds",
		Help:        "Duration of each pipeline stage in milliseconds",
		Buckets:     stageBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.facesDetected = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "faces_detected",
		Help:        "Number of faces the detector returned per image",
		Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
		ConstLabels: m.constLabels,
	})

	m.archiveWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "archive_writes_total",
		Help:        "Archive writes by artifact kind, target and result",
		ConstLabels: m.constLabels,
	}, []string{"kind", "target", "result"})

	m.cleanupRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cleanup_runs_total",
		Help:        "Cleanup invocations by status",
		ConstLabels: m.constLabels,
	}, []string{"status"})

	m.queueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_size",
		Help:        "Items waiting in a background queue",
		ConstLabels: m.constLabels,
	}, []string{"queue"})

	m.queueDrops = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queue_drops_total",
		Help:        "Items rejected by a background queue, by reason",
		ConstLabels: m.constLabels,
	}, []string{"queue", "reason"})

	m.workerJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_jobs_total",
		Help:        "Background jobs processed, by pool and result",
		ConstLabels: m.constLabels,
	}, []string{"pool", "result"})

	m.workerJobDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_job_duration_milliseconds",
		Help:        "Background job duration in milliseconds",
		Buckets:     stageBuckets,
		ConstLabels: m.constLabels,
	}, []string{"pool"})

	m.workerActive = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "worker_active_count",
		Help:        "Running workers per pool",
		ConstLabels: m.constLabels,
	}, []string{"pool"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
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

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by type and severity",
			ConstLabels: m.constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated and still in use",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordAnalysis counts one analyze-face outcome ("ok", "no_face", ...).
func RecordAnalysis(outcome string) {
	globalManager.analyses.WithLabelValues(outcome).Inc()
}

// RecordStageDuration records the latency of one pipeline stage.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// RecordFacesDetected records how many faces the detector returned.
func RecordFacesDetected(count int) {
	globalManager.facesDetected.Observe(float64(count))
}

// RecordArchiveWrite counts a write of kind ("aligned", "analysis") to target ("disk", "s3").
func RecordArchiveWrite(kind, target string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	globalManager.archiveWrites.WithLabelValues(kind, target, result).Inc()
}

// RecordCleanup counts a cleanup invocation.
func RecordCleanup(status string) {
	globalManager.cleanupRuns.WithLabelValues(status).Inc()
}

// UpdateQueueSize sets the depth of the named queue.
func UpdateQueueSize(queue string, size int) {
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// RecordQueueDrop counts an item the named queue refused.
func RecordQueueDrop(queue, reason string) {
	globalManager.queueDrops.WithLabelValues(queue, reason).Inc()
}

// RecordWorkerJob counts one background job and records its duration.
func RecordWorkerJob(pool string, ok bool, durationMs float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	globalManager.workerJobs.WithLabelValues(pool, result).Inc()
	globalManager.workerJobDuration.WithLabelValues(pool).Observe(durationMs)
}

// UpdateWorkerActiveCount sets how many workers the named pool runs.
func UpdateWorkerActiveCount(pool string, count int) {
	globalManager.workerActive.WithLabelValues(pool).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType increments error counters by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint increments error counters by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the current heap usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
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
