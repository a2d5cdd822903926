package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can run without monitoring in tests.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsEnded   *prometheus.CounterVec
	SessionOutput   prometheus.Counter

	// Chat stream metrics
	ChatStreamsActive  prometheus.Gauge
	ChatRequests       *prometheus.CounterVec
	ChatDeltas         *prometheus.CounterVec
	ChatSkippedFrames  *prometheus.CounterVec
	ChatStreamDuration *prometheus.HistogramVec

	// Event bus metrics
	EventsPublished   *prometheus.CounterVec
	EventSubscribers  prometheus.Gauge
	SubscribersEvicts prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for the JSON health API.
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveStreams     int64   `json:"active_streams"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses a
// fresh private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_service_calls_total",
				Help: "Total number of boundary operations",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_service_duration_seconds",
				Help:    "Boundary operation duration in seconds",
				Buckets: []float64{.0001, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_service_errors_total",
				Help: "Total number of boundary operation failures",
			},
			[]string{"service", "method", "error_type"},
		),

		// Terminal session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_terminal_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_terminal_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
		),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_terminal_sessions_ended_total",
				Help: "Total number of terminal sessions ended",
			},
			[]string{"reason"},
		),
		SessionOutput: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_terminal_output_bytes_total",
				Help: "Total bytes read from terminal processes",
			},
		),

		// Chat stream metrics
		ChatStreamsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_chat_streams_active",
				Help: "Number of in-flight chat streams",
			},
		),
		ChatRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_chat_requests_total",
				Help: "Total number of chat requests by outcome",
			},
			[]string{"provider", "status"},
		),
		ChatDeltas: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_chat_deltas_total",
				Help: "Total number of token deltas relayed",
			},
			[]string{"provider"},
		),
		ChatSkippedFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_chat_skipped_frames_total",
				Help: "Total number of malformed stream frames skipped",
			},
			[]string{"provider"},
		),
		ChatStreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_chat_stream_duration_seconds",
				Help:    "Chat stream duration in seconds",
				Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider"},
		),

		// Event bus metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_events_published_total",
				Help: "Total number of events published on the bus",
			},
			[]string{"kind"},
		),
		EventSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_event_subscribers",
				Help: "Number of event bus subscribers",
			},
		),
		SubscribersEvicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_event_subscribers_evicted_total",
				Help: "Total number of subscribers evicted for falling behind",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_uptime_seconds",
			Help: "Relay uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
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
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a boundary operation
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a boundary operation failure
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	if m == nil {
		return
	}
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// SessionStarted records a new terminal session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionEnded records a terminal session leaving the registry. reason is
// "exit" or "destroy".
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// AddSessionOutput counts bytes read from a terminal process.
func (m *Metrics) AddSessionOutput(n int) {
	if m == nil {
		return
	}
	m.SessionOutput.Add(float64(n))
}

// RecordChatRequest counts a chat request outcome ("started",
// "missing_credential", "http_error", "unavailable", "error").
func (m *Metrics) RecordChatRequest(provider, status string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(provider, status).Inc()
}

// ChatStreamStarted records a stream entering flight.
func (m *Metrics) ChatStreamStarted() {
	if m == nil {
		return
	}
	m.ChatStreamsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveStreams++
	m.mu.Unlock()
}

// ChatStreamEnded records a finished stream and its lifetime.
func (m *Metrics) ChatStreamEnded(provider string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ChatStreamsActive.Dec()
	m.ChatStreamDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.mu.Lock()
	m.snapshot.ActiveStreams--
	m.mu.Unlock()
}

// IncChatDelta counts one relayed token delta.
func (m *Metrics) IncChatDelta(provider string) {
	if m == nil {
		return
	}
	m.ChatDeltas.WithLabelValues(provider).Inc()
}

// AddSkippedFrames counts malformed stream frames.
func (m *Metrics) AddSkippedFrames(provider string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChatSkippedFrames.WithLabelValues(provider).Add(float64(n))
}

// RecordEvent counts one published bus event.
func (m *Metrics) RecordEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(kind).Inc()
}

// SetSubscribers sets the current bus subscriber count.
func (m *Metrics) SetSubscribers(count int) {
	if m == nil {
		return
	}
	m.EventSubscribers.Set(float64(count))
}

// IncSubscriberEvicted counts one subscriber dropped for a full queue.
func (m *Metrics) IncSubscriberEvicted() {
	if m == nil {
		return
	}
	m.SubscribersEvicts.Inc()
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

// Snapshot returns a copy of the tracked values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
