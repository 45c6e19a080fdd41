// Package metrics provides Prometheus metrics for the idscan service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Intake pipeline
	scansAccepted  prometheus.Counter
	scansInvalid   prometheus.Counter
	scansDuplicate prometheus.Counter
	scansDebounced prometheus.Counter
	scansEvicted   prometheus.Counter
	bufferSize     prometheus.Gauge
	scansByBranch  *prometheus.CounterVec

	// Sink: queue, workers, repository
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDropped           *prometheus.CounterVec
	workerActiveCount      prometheus.Gauge
	workerErrors           prometheus.Counter
	forwardLatency         prometheus.Histogram
	repositoryRecords      prometheus.Counter
	repositoryQueryLatency prometheus.Histogram

	// Live feed
	feedClients    prometheus.Gauge
	feedBroadcasts prometheus.Counter
	feedDropped    prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Decoder
	decoderErrors *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "idscan",
		subsystem:        "intake",
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.scansAccepted = m.counter("scans_accepted_total", "Total number of accepted student ID scans")
	m.scansInvalid = m.counter("scans_invalid_total", "Total number of detections rejected for invalid format")
	m.scansDuplicate = m.counter("scans_duplicate_total", "Total number of detections rejected as already scanned")
	m.scansDebounced = m.counter("scans_debounced_total", "Total number of repeat frames ignored inside the debounce window")
	m.scansEvicted = m.counter("scans_evicted_total", "Total number of records evicted from the recent results buffer")
	m.bufferSize = m.gauge("buffer_size", "Current number of records in the recent results buffer")
	m.scansByBranch = m.counterVec("scans_by_branch_total", "Accepted scans by branch code", "branch")

	m.queueSize = m.gauge("queue_size", "Current number of records waiting to be forwarded")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum forward queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of records enqueued for forwarding")
	m.queueDropped = m.counterVec("queue_dropped_total", "Records dropped before forwarding", "reason")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of forward workers")
	m.workerErrors = m.counter("worker_errors_total", "Total number of forward failures")
	m.forwardLatency = m.histogram("forward_latency_milliseconds", "Latency of forwarding one record in milliseconds")
	m.repositoryRecords = m.counter("repository_records_total", "Total number of records persisted")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository query latency in milliseconds")

	m.feedClients = m.gauge("feed_clients", "Number of connected live feed clients")
	m.feedBroadcasts = m.counter("feed_broadcasts_total", "Total number of signals broadcast to the live feed")
	m.feedDropped = m.counter("feed_dropped_clients_total", "Total number of live feed clients dropped for being slow")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")

	m.decoderErrors = m.counterVec("decoder_errors_total", "Camera/decoder failures reported by clients", "name")
}

// RecordScanAccepted counts an accepted scan for the given branch.
func RecordScanAccepted(branch string) {
	globalManager.scansAccepted.Inc()
	globalManager.scansByBranch.WithLabelValues(branch).Inc()
}

// RecordScanInvalid counts a detection with invalid format.
func RecordScanInvalid() { globalManager.scansInvalid.Inc() }

// RecordScanDuplicate counts a duplicate detection.
func RecordScanDuplicate() { globalManager.scansDuplicate.Inc() }

// RecordScanDebounced counts a debounced repeat frame.
func RecordScanDebounced() { globalManager.scansDebounced.Inc() }

// RecordScanEvicted counts a record evicted from the buffer.
func RecordScanEvicted() { globalManager.scansEvicted.Inc() }

// UpdateBufferSize sets the current buffer length.
func UpdateBufferSize(size int) { globalManager.bufferSize.Set(float64(size)) }

// UpdateQueueSize sets the current forward queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the forward queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an enqueued record.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDropped counts a record dropped by the sink, labelled by reason.
func RecordQueueDropped(reason string) { globalManager.queueDropped.WithLabelValues(reason).Inc() }

// UpdateWorkerActiveCount sets the number of forward workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerError counts a forward failure.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordForwardLatency records forwarding latency in milliseconds.
func RecordForwardLatency(latencyMs float64) { globalManager.forwardLatency.Observe(latencyMs) }

// RecordRepositoryRecord counts a persisted record.
func RecordRepositoryRecord() { globalManager.repositoryRecords.Inc() }

// RecordRepositoryQueryLatency records repository query latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateFeedClients sets the number of connected feed clients.
func UpdateFeedClients(count int) { globalManager.feedClients.Set(float64(count)) }

// RecordFeedBroadcast counts a broadcast signal.
func RecordFeedBroadcast() { globalManager.feedBroadcasts.Inc() }

// RecordFeedDropped counts a feed client dropped for a full send buffer.
func RecordFeedDropped() { globalManager.feedDropped.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordDecoderError counts a camera/decoder failure reported by a client.
func RecordDecoderError(name string) {
	globalManager.decoderErrors.WithLabelValues(name).Inc()
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
