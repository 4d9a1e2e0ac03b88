package ws

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one dashboard subscriber on the compliance stream. gorilla
// connections allow only a single concurrent writer, and both the hub
// goroutine and the subscribing handler write to a fresh client, so Send
// serializes writes behind a mutex.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *slog.Logger
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send writes one text frame. On failure the connection is closed; the hub
// drops the subscriber on its next broadcast.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

// Close terminates the connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}
