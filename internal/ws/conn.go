package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// connection serializes writes to one socket; gorilla allows a single
// concurrent writer.
type connection struct {
	id string
	ws *websocket.Conn

	mu        sync.Mutex
	closeOnce sync.Once
}

func newConnection(id string, ws *websocket.Conn) *connection {
	return &connection{id: id, ws: ws}
}

func (c *connection) write(v interface{}) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.ws.Close()
	})
}
