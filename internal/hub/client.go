package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"servly-chat-server/internal/domain"
)

// Client mediates between one WebSocket connection and the Hub. It is
// created only after handshake authentication, so it always carries its
// participant's identity.
type Client struct {
	UserID uuid.UUID
	Name   string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte // outbound message buffer
}

func (c *Client) participantID() string {
	return c.UserID.String()
}

// Enqueue queues a raw message for delivery. It reports false when the
// buffer is full or closed; the message is dropped, and a reconnecting
// client catches up from the message store.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// readPump reads events from the WebSocket and feeds them to the hub loop.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		var req domain.WebSocketMessage
		if err := c.Conn.ReadJSON(&req); err != nil {
			c.Hub.logger.Debug("read loop closed",
				zap.String("participant", c.participantID()),
				zap.Error(err))
			break
		}
		c.Hub.messages <- &ClientRequest{Client: c, Message: req}
	}
}

// writePump drains the Send channel into the WebSocket.
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.Debug("write loop closed",
				zap.String("participant", c.participantID()),
				zap.Error(err))
			return
		}
	}
}

// sendEvent marshals and queues one event for this client only.
func (c *Client) sendEvent(eventType string, payload interface{}) {
	raw, err := json.Marshal(domain.WebSocketMessage{Type: eventType, Payload: payload})
	if err != nil {
		return
	}
	if !c.Enqueue(raw) {
		c.Hub.logger.Warn("dropped event for slow or closed channel",
			zap.String("participant", c.participantID()),
			zap.String("event", eventType))
	}
}

// sendError reports a scoped failure back to this client. Errors never tear
// down the connection.
func (c *Client) sendError(content string) {
	c.sendEvent(domain.EventError, domain.SystemPayload{
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
