// Package ws serves the /stream WebSocket used by the UI.
//
// Each connection subscribes to the event bus and receives every terminal
// and chat event as a JSON frame. Client frames name a boundary operation
// ("terminal:create", "ai:chat", ...) and are answered with a result frame
// carrying the same ref.
//
// Message Types (Client → Server):
//   - terminal:create|write|resize|interrupt|destroy|kill|list
//   - ai:getConfig|setConfig|chat|cancel
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - result: Outcome of one client frame
//   - terminal:data, terminal:exit: Session output and exit
//   - ai:stream, ai:stream:end: Chat deltas and end of stream
//   - system, pong
//
// Example Usage:
//
//	handler := ws.NewHandler(registry, bus, 1024, metrics, log)
//	router.GET("/stream", handler.HandleConnection)
package ws
