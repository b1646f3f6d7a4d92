package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// HandleWebSocket upgrades the HTTP connection to a WebSocket and manages
// the read/write pumps for the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.insecure,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		conn: conn,
	}

	// Greet with the last run, if any.
	client.sendLastRun()

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go client.writePump(r.Context())
	client.readPump(r.Context())
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				c.hub.logger.Debug("websocket client disconnected normally")
			}
			return
		}

		// Parse incoming messages
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type == MsgSync {
			c.sendLastRun()
		}
	}
}

func (c *Client) sendLastRun() {
	if c.hub.stateProvider == nil {
		return
	}
	data, err := c.hub.stateProvider()
	if err != nil {
		c.hub.logger.Warn("reading last run for websocket client", "error", err)
		return
	}
	if data == nil {
		return
	}
	msg, err := NewMessage(MsgLastRun, json.RawMessage(data))
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
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

// ServeHTTP lets the hub be mounted directly as a handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWebSocket(w, r)
}
