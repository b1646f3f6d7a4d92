package ws

import (
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// StateProviderFunc returns the last run report as JSON bytes, or nil when
// there is none.
type StateProviderFunc func() ([]byte, error)

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients       map[*Client]bool
	broadcast     chan []byte
	register      chan *Client
	unregister    chan *Client
	done          chan struct{}
	logger        *slog.Logger
	mu            sync.RWMutex
	stateProvider StateProviderFunc
	insecure      bool
}

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetStateProvider sets the function called to greet new or re-syncing clients.
func (h *Hub) SetStateProvider(fn StateProviderFunc) {
	h.stateProvider = fn
}

// AllowAnyOrigin disables the same-origin check on upgrade.
func (h *Hub) AllowAnyOrigin(allow bool) {
	h.insecure = allow
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends the event loop and disconnects every client.
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

func (h *Hub) send(typ MessageType, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("failed to create message", "type", typ, "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastStageStarted announces a pipeline stage starting.
func (h *Hub) BroadcastStageStarted(runID, stage string) {
	h.send(MsgStageStarted, StageEvent{RunID: runID, Stage: stage})
}

// BroadcastStageCompleted announces a finished pipeline or integrity stage.
func (h *Hub) BroadcastStageCompleted(ev StageEvent) {
	h.send(MsgStageCompleted, ev)
}

// BroadcastRunCompleted sends the final run report.
func (h *Hub) BroadcastRunCompleted(report any) {
	h.send(MsgRunCompleted, report)
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(runID, stage, message string) {
	h.send(MsgError, ErrorEvent{RunID: runID, Stage: stage, Message: message})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
