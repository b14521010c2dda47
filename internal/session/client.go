package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/tiger-colonel/xyflow-study/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
	sendBuffer = 256
)

// Client is one websocket connection to a flow room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	ClientID string
	Subject  string
	FlowID   string
}

func NewClient(hub *Hub, conn *websocket.Conn, clientID, subject, flowID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		ClientID: clientID,
		Subject:  subject,
		FlowID:   flowID,
	}
}

// Messages returns the client's outgoing queue, for hosts that deliver
// messages without a websocket.
func (c *Client) Messages() <-chan []byte { return c.send }

// ReadPump forwards incoming messages to the client's room until the
// connection closes, then leaves the hub.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			continue
		}
		metrics.MessageTotal.WithLabelValues("in", msg.Type).Inc()

		msg.ClientID = c.ClientID
		msg.Subject = c.Subject
		msg.FlowID = c.FlowID

		c.hub.Submit(c, &msg)
	}
}

// WritePump writes queued messages and pings until the send channel is
// closed or ctx is done.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Send queues msg without blocking. Messages are dropped while the buffer
// is full. It must only be called from the room loop.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
		metrics.MessageTotal.WithLabelValues("out", msg.Type).Inc()
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID)
	}
}
