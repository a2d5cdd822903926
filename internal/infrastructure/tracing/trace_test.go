package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New("relay", zap.New(core)), logs
}

func TestStartSpanContinuesTrace(t *testing.T) {
	tracer := New("relay", nil)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, _ := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.True(t, id.IsValid(parent.TraceID.String()))
}

func TestSubmitLogsSpan(t *testing.T) {
	tracer, logs := newObservedTracer()

	span, _ := tracer.StartSpan(context.Background(), "chat.stream")
	span.SetTag("provider", "anthropic")
	span.SetError(errors.New("boom"))
	span.Finish()
	tracer.Submit(span)
	tracer.Close()

	entries := logs.FilterMessage("span completed with error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "chat.stream", fields["operation"])
	assert.Equal(t, "anthropic", fields["provider"])
	assert.Equal(t, int64(http.StatusInternalServerError), fields["status"])
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	tracer, logs := newObservedTracer()
	tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "late")
	span.Finish()
	assert.NotPanics(t, func() { tracer.Submit(span) })
	assert.Zero(t, logs.Len())
}

func TestHTTPMiddlewarePropagatesHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("relay", nil)
	defer tracer.Close()

	var seen id.TraceID
	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/health", func(c *gin.Context) {
		seen = GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderTraceID, "trace_abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, id.TraceID("trace_abc"), seen)
	assert.Equal(t, "trace_abc", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
}
