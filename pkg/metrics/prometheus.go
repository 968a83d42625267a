// Package metrics provides Prometheus metrics for the JackTrack service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every metric is named jacktrack_core_<name>.
const (
	namespace = "jacktrack"
	subsystem = "core"
)

// Manager manages all Prometheus metrics for the JackTrack service.
type Manager struct {
	registry prometheus.Registerer

	// Collaborator event ingestion
	eventsReceived  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsApplied   *prometheus.CounterVec
	eventsRejected  *prometheus.CounterVec
	applyLatency    prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Device registry
	connectionTransitions *prometheus.CounterVec
	ballsByState          *prometheus.GaugeVec
	telemetryUpdates      prometheus.Counter
	scanActive            prometheus.Gauge

	// Navigation and location
	navigationActive   prometheus.Gauge
	distanceComputed   prometheus.Counter
	locationFixes      *prometheus.CounterVec
	locationFixAgeSecs prometheus.Gauge

	// Scorecard
	scoresSet       prometheus.Counter
	scoresRejected  prometheus.Counter
	roundsSaved     prometheus.Counter
	roundSaveErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{registry: prometheus.DefaultRegisterer}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.eventsReceived = m.counterVec("events_received_total", "Collaborator events received by kind", "kind")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Collaborator events dropped as duplicates")
	m.eventsApplied = m.counterVec("events_applied_total", "Collaborator events applied to the core by kind", "kind")
	m.eventsRejected = m.counterVec("events_rejected_total", "Collaborator events ignored or rejected by kind", "kind")
	m.applyLatency = m.histogram("event_apply_latency_milliseconds", "Time to apply one collaborator event", prometheus.DefBuckets)

	m.queueSize = m.gauge("queue_size", "Current number of queued collaborator events")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Total number of events enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Total number of events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueue attempts")

	m.connectionTransitions = m.counterVec("connection_transitions_total", "Ball connection state transitions", "from", "to")
	m.ballsByState = m.gaugeVec("balls", "Tracked balls by connection state", "state")
	m.telemetryUpdates = m.counter("telemetry_updates_total", "Battery/signal telemetry updates applied")
	m.scanActive = m.gauge("scan_active", "1 while a discovery scan is running")

	m.navigationActive = m.gauge("navigation_active", "1 while the user navigates to a ball")
	m.distanceComputed = m.counter("distance_computations_total", "Great-circle distances computed")
	m.locationFixes = m.counterVec("location_fixes_total", "Location fixes by outcome", "outcome")
	m.locationFixAgeSecs = m.gauge("location_fix_age_seconds", "Age of the latest location fix")

	m.scoresSet = m.counter("scores_set_total", "Hole scores accepted")
	m.scoresRejected = m.counter("scores_rejected_total", "Hole scores rejected as invalid")
	m.roundsSaved = m.counter("rounds_saved_total", "Rounds saved to the round store")
	m.roundSaveErrors = m.counter("round_save_errors_total", "Round save attempts that failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.DefBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Event ingestion.

// RecordEventReceived counts a collaborator event of the given kind.
func RecordEventReceived(kind string) {
	globalManager.eventsReceived.WithLabelValues(kind).Inc()
}

// RecordEventDuplicate counts an event dropped by the deduper.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventApplied counts an event applied to the core.
func RecordEventApplied(kind string, latencyMs float64) {
	globalManager.eventsApplied.WithLabelValues(kind).Inc()
	globalManager.applyLatency.Observe(latencyMs)
}

// RecordEventRejected counts an event the core ignored.
func RecordEventRejected(kind string) {
	globalManager.eventsRejected.WithLabelValues(kind).Inc()
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Registry.

// RecordConnectionTransition counts a ball moving between states.
func RecordConnectionTransition(from, to string) {
	globalManager.connectionTransitions.WithLabelValues(from, to).Inc()
}

// UpdateBallsByState sets the number of balls currently in state.
func UpdateBallsByState(state string, count int) {
	globalManager.ballsByState.WithLabelValues(state).Set(float64(count))
}

// RecordTelemetryUpdate counts an applied telemetry update.
func RecordTelemetryUpdate() {
	globalManager.telemetryUpdates.Inc()
}

// UpdateScanActive records whether scanning is on.
func UpdateScanActive(active bool) {
	globalManager.scanActive.Set(boolGauge(active))
}

// Navigation and location.

// UpdateNavigationActive records whether navigation is on.
func UpdateNavigationActive(active bool) {
	globalManager.navigationActive.Set(boolGauge(active))
}

// RecordDistanceComputed counts a distance computation.
func RecordDistanceComputed() {
	globalManager.distanceComputed.Inc()
}

// RecordLocationFix counts a location fix by outcome ("accepted", "rejected").
func RecordLocationFix(outcome string) {
	globalManager.locationFixes.WithLabelValues(outcome).Inc()
}

// UpdateLocationFixAge sets the age of the latest fix.
func UpdateLocationFixAge(age time.Duration) {
	globalManager.locationFixAgeSecs.Set(age.Seconds())
}

// Scorecard.

// RecordScoreSet counts an accepted hole score.
func RecordScoreSet() {
	globalManager.scoresSet.Inc()
}

// RecordScoreRejected counts a rejected hole score.
func RecordScoreRejected() {
	globalManager.scoresRejected.Inc()
}

// RecordRoundSaved counts a saved round.
func RecordRoundSaved() {
	globalManager.roundsSaved.Inc()
}

// RecordRoundSaveError counts a failed save.
func RecordRoundSaveError() {
	globalManager.roundSaveErrors.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap memory in use in bytes.
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
