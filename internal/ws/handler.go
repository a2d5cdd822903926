package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/logging"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI is served from a local origin
	},
}

// Dispatcher executes a named boundary operation.
type Dispatcher interface {
	Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error)
}

// Subscriber hands out event subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, buffer int) (<-chan events.Event, func())
}

// Handler manages WebSocket connections
type Handler struct {
	dispatcher Dispatcher
	bus        Subscriber
	buffer     int
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewHandler creates a new WebSocket handler. buffer is the per-connection
// event queue size.
func NewHandler(dispatcher Dispatcher, bus Subscriber, buffer int, metrics *monitoring.Metrics, log *zap.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		bus:        bus,
		buffer:     buffer,
		metrics:    metrics,
		log:        logging.OrNop(log).Named("ws"),
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(uuid.NewString(), ws)
	log := h.log.With(zap.String("conn_id", conn.id))
	h.metrics.IncWSConnections()
	log.Info("WebSocket connected", zap.String("remote", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	stream, unsubscribe := h.bus.Subscribe(ctx, h.buffer)
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		unsubscribe()
		inflight.Wait()
		conn.close()
		h.metrics.DecWSConnections()
		log.Info("WebSocket disconnected")
	}()

	go h.pump(ctx, conn, stream, log)

	h.send(conn, map[string]interface{}{
		"type":      types.MsgSystem,
		"message":   "Connected to session relay",
		"connId":    conn.id,
		"timestamp": time.Now().Unix(),
	}, types.MsgSystem)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg types.WSMessage
		if err := sonic.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			h.reply(conn, "", types.Failure("invalid message"))
			continue
		}
		h.metrics.RecordWSMessage("in", metricType(msg.Type))

		switch msg.Type {
		case types.MsgPing:
			h.send(conn, map[string]interface{}{"type": types.MsgPong, "ref": msg.Ref}, types.MsgPong)
		case types.MsgAIChat:
			// Waiting for provider headers must not stall terminal input.
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				h.dispatch(ctx, conn, msg, log)
			}()
		default:
			h.dispatch(ctx, conn, msg, log)
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *connection, msg types.WSMessage, log *zap.Logger) {
	res, err := h.dispatcher.Execute(ctx, toolID(msg.Type), params(msg))
	if err != nil {
		log.Debug("Frame rejected", zap.String("type", msg.Type), zap.Error(err))
		res = types.FailureFromError(err)
	}
	h.reply(conn, msg.Ref, res)
}

// pump forwards bus events until the subscription ends. A closed channel
// while ctx is live means the bus evicted this connection as too slow, so
// the socket is closed and the client is expected to reconnect.
func (h *Handler) pump(ctx context.Context, conn *connection, stream <-chan events.Event, log *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Event pump panicked", zap.Any("panic", r), zap.Stack("stack"))
			conn.close()
		}
	}()

	for ev := range stream {
		frame, ok := eventFrame(ev)
		if !ok {
			continue
		}
		if err := h.send(conn, frame, frame.Type); err != nil {
			log.Debug("Event write failed", zap.Error(err))
			conn.close()
			return
		}
	}
	if ctx.Err() == nil {
		log.Warn("Event subscription ended, closing connection")
		conn.close()
	}
}

func (h *Handler) reply(conn *connection, ref string, res *types.Result) {
	h.send(conn, types.NewResultFrame(ref, res), types.MsgResult)
}

func (h *Handler) send(conn *connection, v interface{}, msgType string) error {
	if err := conn.write(v); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", msgType)
	return nil
}

// toolID maps a frame type such as "terminal:create" to "terminal.create".
func toolID(frameType string) string {
	return strings.Replace(frameType, ":", ".", 1)
}

func params(msg types.WSMessage) map[string]interface{} {
	p := map[string]interface{}{
		"id":        msg.ID,
		"cwd":       msg.Cwd,
		"data":      msg.Data,
		"requestId": msg.RequestID,
	}
	if msg.Cols != 0 || msg.Rows != 0 || msg.Type == types.MsgTerminalResize {
		p["cols"] = msg.Cols
		p["rows"] = msg.Rows
	}
	if msg.Messages != nil {
		p["messages"] = msg.Messages
	}
	if msg.Config != nil {
		p["config"] = msg.Config
	}
	return p
}

func eventFrame(ev events.Event) (types.EventFrame, bool) {
	frame := types.EventFrame{Timestamp: ev.Timestamp.UnixMilli()}
	switch ev.Kind {
	case events.KindSessionData:
		frame.Type, frame.ID, frame.Data = types.MsgTerminalData, ev.SessionID, ev.Data
	case events.KindSessionExit:
		frame.Type, frame.ID = types.MsgTerminalExit, ev.SessionID
	case events.KindChatDelta:
		frame.Type, frame.RequestID, frame.Content = types.MsgAIStream, ev.RequestID, ev.Data
	case events.KindChatEnd:
		frame.Type, frame.RequestID = types.MsgAIStreamEnd, ev.RequestID
	default:
		return frame, false
	}
	return frame, true
}

var knownTypes = map[string]struct{}{
	types.MsgTerminalCreate:    {},
	types.MsgTerminalWrite:     {},
	types.MsgTerminalResize:    {},
	types.MsgTerminalInterrupt: {},
	types.MsgTerminalDestroy:   {},
	types.MsgTerminalKill:      {},
	types.MsgTerminalList:      {},
	types.MsgAIGetConfig:       {},
	types.MsgAISetConfig:       {},
	types.MsgAIChat:            {},
	types.MsgAICancel:          {},
	types.MsgPing:              {},
}

// metricType keeps client-chosen strings out of metric labels.
func metricType(frameType string) string {
	if _, ok := knownTypes[frameType]; ok {
		return frameType
	}
	return "unknown"
}
