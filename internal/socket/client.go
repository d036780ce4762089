package socket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
)

// Client is one active socket session. Its identifier is assigned at upgrade
// time and doubles as the sender reference on every message it submits.
type Client struct {
	ID   uuid.UUID
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	logger logger.Logger
}

func (h *Hub) NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		logger: h.logger,
	}
}

// readPump consumes inbound events until the connection drops, then removes
// the client from the registry. Malformed or empty events are logged and
// dropped; there is no response channel back to the sender.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(constants.PongWait)); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.PongWait))
	})

	for {
		var event InboundEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WarnwCtx(ctx, "Unexpected connection close", "error", err)
			}
			return
		}

		if event.Text == "" {
			c.logger.DebugwCtx(ctx, "Dropping empty message")
			continue
		}

		if err := c.hub.Submit(ctx, c, event.Text); err != nil {
			// Fire-and-forget broadcast: nothing to send back to this client.
			c.logger.ErrorwCtx(ctx, "Failed to submit message", "error", err)
		}
	}
}

// writePump owns all writes on the connection: queued broadcasts and
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
