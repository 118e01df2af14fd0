package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sporelabs/sporeverse/internal/services/presence"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Ping interval, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound frame we accept
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Presence is the slice of the coordinator the transport drives
type Presence interface {
	Connect(id presence.ConnID)
	Join(ctx context.Context, id presence.ConnID, roomName, key string)
	Move(id presence.ConnID, dx, dy float64)
	UpdateName(ctx context.Context, id presence.ConnID, name string)
	UpdateAvatar(ctx context.Context, id presence.ConnID, url string)
	SendMessage(id presence.ConnID, text string)
	Disconnect(id presence.ConnID)
}

// Client is one websocket connection. Its send channel survives room hops
// and is closed exactly once, on teardown.
type Client struct {
	id       presence.ConnID
	conn     *websocket.Conn
	send     chan []byte
	manager  *Manager
	presence Presence
	logger   *slog.Logger

	closeOnce sync.Once
}

func newClient(id presence.ConnID, conn *websocket.Conn, manager *Manager, p Presence, logger *slog.Logger) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		manager:  manager,
		presence: p,
		logger:   logger.With(slog.String("conn_id", string(id))),
	}
}

// teardown runs the full disconnect sequence exactly once, regardless of
// which pump noticed the connection dying first.
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		c.presence.Disconnect(c.id)
		c.manager.detach(c)
		close(c.send)
		_ = c.conn.Close()
	})
}

// readPump reads client events and dispatches them to the coordinator
func (c *Client) readPump(ctx context.Context) {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection closed unexpectedly", slog.Any("error", err))
			}
			return
		}

		var msg clientEnvelope
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Warn("discarding malformed message", slog.Any("error", err))
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg clientEnvelope) {
	switch msg.Type {
	case eventJoin:
		c.presence.Join(ctx, c.id, msg.RoomName, msg.Key)
	case eventMove:
		c.presence.Move(c.id, msg.X, msg.Y)
	case eventUpdateName:
		c.presence.UpdateName(ctx, c.id, msg.Name)
	case eventUpdateAvatar:
		c.presence.UpdateAvatar(ctx, c.id, msg.URL)
	case eventSendMessage:
		c.presence.SendMessage(c.id, msg.Message)
	default:
		c.logger.Warn("unknown message type", slog.String("type", msg.Type))
	}
}

// writePump drains the send channel onto the wire and keeps the peer alive
// with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
