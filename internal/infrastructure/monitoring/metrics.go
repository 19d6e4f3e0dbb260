package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Home model metrics
	ActivitiesTracked prometheus.Gauge
	HomeEvents        *prometheus.CounterVec
	WindowEvents      *prometheus.CounterVec
	ServiceEvents     prometheus.Counter
	Inconsistencies   prometheus.Counter

	// Bundle registry metrics
	BundlesRegistered prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		ActivitiesTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_activities_tracked",
				Help: "Number of activities in the home model registry",
			},
		),
		HomeEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_home_events_total",
				Help: "Total number of home model change events emitted",
			},
			[]string{"event"},
		),
		WindowEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_window_events_total",
				Help: "Total number of window events delivered",
			},
			[]string{"event"},
		),
		ServiceEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_service_events_total",
				Help: "Total number of service name owner changes delivered",
			},
		),
		Inconsistencies: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_inconsistencies_total",
				Help: "Total number of inconsistent state warnings",
			},
		),

		BundlesRegistered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_bundles_registered",
				Help: "Number of bundles in the bundle registry",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_ws_connections",
				Help: "Number of active WebSocket subscribers",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_uptime_seconds",
				Help: "Shell service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordHomeEvent records an emitted home model event
func (m *Metrics) RecordHomeEvent(event string) {
	m.HomeEvents.WithLabelValues(event).Inc()
}

// RecordWindowEvent records a delivered window event
func (m *Metrics) RecordWindowEvent(event string) {
	m.WindowEvents.WithLabelValues(event).Inc()
}

// RecordServiceEvent records a delivered name owner change
func (m *Metrics) RecordServiceEvent() {
	m.ServiceEvents.Inc()
}

// IncInconsistencies increments the inconsistency counter
func (m *Metrics) IncInconsistencies() {
	m.Inconsistencies.Inc()
}

// SetActivitiesTracked sets the tracked activity gauge
func (m *Metrics) SetActivitiesTracked(count int) {
	m.ActivitiesTracked.Set(float64(count))
}

// SetBundlesRegistered sets the bundle registry gauge
func (m *Metrics) SetBundlesRegistered(count int) {
	m.BundlesRegistered.Set(float64(count))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
