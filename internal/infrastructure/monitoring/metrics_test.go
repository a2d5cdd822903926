package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(nil)
	})
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.SessionEnded("exit")
		m.RecordChatRequest("openai", "started")
		m.IncWSConnections()
		NewTimer(m, "terminal", "create").Stop("success")
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestSessionLifecycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded("destroy")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsEnded.WithLabelValues("destroy")))
	assert.Equal(t, int64(1), m.Snapshot().ActiveSessions)
}

func TestChatStreamMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ChatStreamStarted()
	m.IncChatDelta("anthropic")
	m.IncChatDelta("anthropic")
	m.AddSkippedFrames("anthropic", 1)
	m.AddSkippedFrames("anthropic", 0)
	m.ChatStreamEnded("anthropic", 2*time.Second)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ChatStreamsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ChatDeltas.WithLabelValues("anthropic")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChatSkippedFrames.WithLabelValues("anthropic")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "/sessions/"+id, nil)
		require.NoError(t, err)
		router.ServeHTTP(w, req)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}
