package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection. Only its read goroutine mutates
// lastJoin, so the join cooldown needs no lock and dies with the client.
type Client struct {
	id       string
	remoteIP string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	lastJoin time.Time
	logger   logger.Logger
}

func (c *Client) ID() string { return c.id }

// emit encodes and queues a frame for this client only.
func (c *Client) emit(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		c.logger.Error("failed to encode frame", logger.String("event", event), logger.Error(err))
		return
	}
	c.enqueue(frame)
}

func (c *Client) emitError(message string) {
	c.emit(EventError, errorData{Message: message})
}

// enqueue never blocks; a full queue drops the frame for this client.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		metrics.DroppedFrame()
		c.logger.Debug("send queue full, frame dropped")
		return false
	}
}

// readPump runs on its own goroutine and owns unregistration.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed unexpectedly", logger.Error(err))
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
			c.emitError(msgInvalidRequest)
			continue
		}
		c.hub.dispatch(c, msg)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
