package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

type call struct {
	toolID string
	params map[string]interface{}
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeDispatcher) Execute(_ context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{toolID: toolID, params: params})
	if f.err != nil {
		return nil, f.err
	}
	return types.Success(map[string]interface{}{"tool": toolID}), nil
}

func (f *fakeDispatcher) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type testEnv struct {
	bus        *events.Bus
	dispatcher *fakeDispatcher
	metrics    *monitoring.Metrics
	url        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		bus:        events.NewBus(nil, nil),
		dispatcher: &fakeDispatcher{},
		metrics:    monitoring.NewMetrics(prometheus.NewRegistry()),
	}
	h := NewHandler(env.dispatcher, env.bus, 16, env.metrics, nil)

	router := gin.New()
	router.GET("/stream", h.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		env.bus.Close()
		srv.Close()
	})

	env.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	return env
}

// dial connects and consumes the greeting, after which the connection is
// subscribed to the bus.
func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := readFrame(t, conn)
	require.Equal(t, types.MsgSystem, hello["type"])
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestPingPong(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping", "ref": "p1"}))
	frame := readFrame(t, conn)
	assert.Equal(t, types.MsgPong, frame["type"])
	assert.Equal(t, "p1", frame["ref"])
}

func TestFrameIsDispatchedAndAnswered(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(types.WSMessage{
		Type: types.MsgTerminalResize,
		Ref:  "r1",
		ID:   "t1",
		Cols: 100,
		Rows: 30,
	}))
	frame := readFrame(t, conn)
	assert.Equal(t, types.MsgResult, frame["type"])
	assert.Equal(t, "r1", frame["ref"])
	assert.Equal(t, true, frame["success"])

	got := env.dispatcher.last()
	assert.Equal(t, "terminal.resize", got.toolID)
	assert.Equal(t, "t1", got.params["id"])
	assert.Equal(t, 100, got.params["cols"])
	assert.Equal(t, 30, got.params["rows"])

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WSMessages.WithLabelValues("in", types.MsgTerminalResize)))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WSConnections))
}

func TestChatFrameIsAnswered(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(types.WSMessage{
		Type:      types.MsgAIChat,
		Ref:       "c1",
		RequestID: "req-1",
		Messages:  []types.ChatMessage{{Role: "user", Content: "hi"}},
	}))
	frame := readFrame(t, conn)
	assert.Equal(t, "c1", frame["ref"])
	assert.Equal(t, true, frame["success"])

	got := env.dispatcher.last()
	assert.Equal(t, "ai.chat", got.toolID)
	assert.Equal(t, "req-1", got.params["requestId"])
	assert.Equal(t, []types.ChatMessage{{Role: "user", Content: "hi"}}, got.params["messages"])
}

func TestDispatchErrorBecomesFailure(t *testing.T) {
	env := newTestEnv(t)
	env.dispatcher.err = errors.New("unknown tool: terminal.bogus")
	conn := env.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "terminal:bogus", "ref": "x"}))
	frame := readFrame(t, conn)
	assert.Equal(t, false, frame["success"])
	assert.Equal(t, "unknown tool: terminal.bogus", frame["error"])

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WSMessages.WithLabelValues("in", "unknown")))
}

func TestInvalidFrame(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame := readFrame(t, conn)
	assert.Equal(t, types.MsgResult, frame["type"])
	assert.Equal(t, false, frame["success"])
	assert.Equal(t, "invalid message", frame["error"])
}

func TestEventsReachEveryConnection(t *testing.T) {
	env := newTestEnv(t)
	a := env.dial(t)
	b := env.dial(t)

	env.bus.Publish(events.SessionData("t1", []byte("hello")))
	env.bus.Publish(events.ChatDelta("req-1", "tok"))
	env.bus.Publish(events.ChatEnd("req-1"))
	env.bus.Publish(events.SessionExit("t1"))

	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		assert.Equal(t, types.MsgTerminalData, frame["type"])
		assert.Equal(t, "t1", frame["id"])
		assert.Equal(t, "hello", frame["data"])

		frame = readFrame(t, conn)
		assert.Equal(t, types.MsgAIStream, frame["type"])
		assert.Equal(t, "req-1", frame["requestId"])
		assert.Equal(t, "tok", frame["content"])

		frame = readFrame(t, conn)
		assert.Equal(t, types.MsgAIStreamEnd, frame["type"])

		frame = readFrame(t, conn)
		assert.Equal(t, types.MsgTerminalExit, frame["type"])
		assert.Equal(t, "t1", frame["id"])
	}
}

func TestDisconnectReleasesSubscription(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	require.Equal(t, 1, env.bus.SubscriberCount())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return env.bus.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(env.metrics.WSConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestToolID(t *testing.T) {
	assert.Equal(t, "terminal.create", toolID("terminal:create"))
	assert.Equal(t, "ai.getConfig", toolID("ai:getConfig"))
	assert.Equal(t, "nocolon", toolID("nocolon"))
}

func TestParamsOmitsUnsetSizes(t *testing.T) {
	p := params(types.WSMessage{Type: types.MsgTerminalWrite, ID: "t1", Data: "ls"})
	assert.Equal(t, "ls", p["data"])
	assert.NotContains(t, p, "cols")
	assert.NotContains(t, p, "messages")

	p = params(types.WSMessage{Type: types.MsgTerminalResize, ID: "t1"})
	assert.Equal(t, 0, p["cols"])
}

func TestEventFrameIgnoresUnknownKinds(t *testing.T) {
	_, ok := eventFrame(events.Event{Kind: "other"})
	assert.False(t, ok)
}
