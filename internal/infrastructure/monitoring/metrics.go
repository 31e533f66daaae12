package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solarsense"

// Metrics holds all Prometheus metrics. Every recorder is safe to call on a
// nil *Metrics, so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Servo metrics
	ServoCommands *prometheus.CounterVec
	ServoAngle    *prometheus.GaugeVec

	// Upstream calls (ESP device, weather API, geocoder)
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Tracking metrics
	TrackingActive  prometheus.Gauge
	TrackingUpdates *prometheus.CounterVec
	SunAltitude     prometheus.Gauge
	SunAzimuth      prometheus.Gauge

	// Weather metrics
	WeatherAlerts *prometheus.CounterVec

	// Command metrics
	Commands *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for the JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	ServoMoves        int64   `json:"servo_moves"`
	TrackingUpdates   int64   `json:"tracking_updates"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000},
			},
			[]string{"method", "path"},
		),

		ServoCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "servo_commands_total",
				Help:      "Servo commands sent, by servo, mode (manual/auto) and outcome",
			},
			[]string{"servo", "mode", "status"},
		),
		ServoAngle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "servo_angle_degrees",
				Help:      "Last commanded servo angle",
			},
			[]string{"servo"},
		),

		UpstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Calls to the ESP board and external APIs",
			},
			[]string{"service", "operation", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "operation"},
		),

		TrackingActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tracking_active",
				Help:      "1 while auto tracking is running",
			},
		),
		TrackingUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tracking_updates_total",
				Help:      "Auto tracking position updates by outcome",
			},
			[]string{"status"},
		),
		SunAltitude: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sun_altitude_degrees",
				Help:      "Sun altitude at the last tracking update",
			},
		),
		SunAzimuth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sun_azimuth_degrees",
				Help:      "Mirrored sun azimuth at the last tracking update",
			},
		),

		WeatherAlerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_alerts_total",
				Help:      "Weather alerts raised by level and condition",
			},
			[]string{"level", "condition"},
		),

		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Text commands handled by action and outcome",
			},
			[]string{"action", "status"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServoCommand records a servo move. mode is "manual" or "auto".
func (m *Metrics) RecordServoCommand(servo, mode string, angle int, err error) {
	if m == nil {
		return
	}
	m.ServoCommands.WithLabelValues(servo, mode, statusOf(err)).Inc()
	m.ServoAngle.WithLabelValues(servo).Set(float64(angle))

	m.mu.Lock()
	m.snapshot.ServoMoves++
	m.mu.Unlock()
}

// RecordUpstreamCall records a call to the device or an external API
func (m *Metrics) RecordUpstreamCall(service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(service, operation, status).Inc()
	m.UpstreamDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// SetTrackingActive flips the tracking gauge
func (m *Metrics) SetTrackingActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.TrackingActive.Set(1)
	} else {
		m.TrackingActive.Set(0)
	}
}

// RecordTrackingUpdate records one tracking cycle and the sun position it used
func (m *Metrics) RecordTrackingUpdate(status string, azimuth, altitude float64) {
	if m == nil {
		return
	}
	m.TrackingUpdates.WithLabelValues(status).Inc()
	if status != "error" {
		m.SunAzimuth.Set(azimuth)
		m.SunAltitude.Set(altitude)
	}

	m.mu.Lock()
	m.snapshot.TrackingUpdates++
	m.mu.Unlock()
}

// RecordWeatherAlert counts a raised weather alert
func (m *Metrics) RecordWeatherAlert(level, condition string) {
	if m == nil {
		return
	}
	m.WeatherAlerts.WithLabelValues(level, condition).Inc()
}

// RecordCommand counts a handled text command
func (m *Metrics) RecordCommand(action string, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(action, statusOf(err)).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgDurationMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
