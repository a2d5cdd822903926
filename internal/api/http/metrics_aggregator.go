package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/resilience"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
)

// Sources are the live components whose state is reported. Nil members are
// skipped.
type Sources struct {
	Sessions    interface{ Count() int }
	Streams     interface{ Active() int }
	Subscribers interface{ SubscriberCount() int }
	Breakers    interface {
		BreakerState(chat.Family) resilience.State
	}
}

// MetricsAggregator reports a JSON view of runtime state next to the
// Prometheus endpoint.
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	sources Sources
}

// NewMetricsAggregator creates a metrics aggregator
func NewMetricsAggregator(metrics *monitoring.Metrics, sources Sources) *MetricsAggregator {
	return &MetricsAggregator{metrics: metrics, sources: sources}
}

// MetricsSnapshot represents a snapshot of all system metrics
type MetricsSnapshot struct {
	Timestamp time.Time              `json:"timestamp"`
	Backend   map[string]interface{} `json:"backend"`
	Providers map[string]string      `json:"providers,omitempty"`
	Summary   MetricsSummary         `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveStreams     int64   `json:"active_streams"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// GetAggregatedMetrics returns the current snapshot.
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, ma.Snapshot())
}

// Snapshot collects the current state of every source.
func (ma *MetricsAggregator) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Timestamp: time.Now(),
		Backend:   ma.getBackendMetrics(),
		Summary:   ma.calculateSummary(),
	}

	if ma.sources.Breakers != nil {
		snapshot.Providers = make(map[string]string, 2)
		for _, family := range []chat.Family{chat.FamilyAnthropic, chat.FamilyOpenAI} {
			snapshot.Providers[family.String()] = ma.sources.Breakers.BreakerState(family).String()
		}
	}

	return snapshot
}

func (ma *MetricsAggregator) getBackendMetrics() map[string]interface{} {
	backend := make(map[string]interface{}, 3)
	if ma.sources.Sessions != nil {
		backend["sessions"] = ma.sources.Sessions.Count()
	}
	if ma.sources.Streams != nil {
		backend["chat_streams"] = ma.sources.Streams.Active()
	}
	if ma.sources.Subscribers != nil {
		backend["event_subscribers"] = ma.sources.Subscribers.SubscriberCount()
	}
	return backend
}

// calculateSummary computes high-level summary metrics
func (ma *MetricsAggregator) calculateSummary() MetricsSummary {
	snapshot := ma.metrics.Snapshot()

	var errorRate float64
	if snapshot.TotalRequests > 0 {
		errorRate = float64(snapshot.TotalErrors) / float64(snapshot.TotalRequests)
	}

	return MetricsSummary{
		TotalRequests:     snapshot.TotalRequests,
		ErrorRate:         errorRate,
		ActiveSessions:    snapshot.ActiveSessions,
		ActiveStreams:     snapshot.ActiveStreams,
		ActiveConnections: snapshot.ActiveConnections,
		UptimeSeconds:     snapshot.UptimeSeconds,
	}
}
