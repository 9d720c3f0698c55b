package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seenimoa/bazaar/internal/logging"
)

// WSMessage is the frame exchanged with WebSocket clients.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// WSHub manages WebSocket connections for the snapshot stream.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	unregister chan *WSClient
	stopped    bool
	done       chan struct{}
	log        *logging.Entry
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	id   string
	hub  *WSHub
	send chan WSMessage
}

// NewWSClient creates a client bound to h with a fresh identifier.
func NewWSClient(h *WSHub) *WSClient {
	return &WSClient{
		id:   uuid.NewString(),
		hub:  h,
		send: make(chan WSMessage, 256),
	}
}

// ID returns the client identifier.
func (c *WSClient) ID() string { return c.id }

// NewWSHub creates a new WebSocket hub.
func NewWSHub(log *logging.Entry) *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub event loop. It returns when ctx is done, closing every
// client's send channel.
func (h *WSHub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		h.stopped = true
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.unregister:
			h.drop(client)
		case msg := <-h.broadcast:
			var slow []*WSClient
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				h.log.WithField("client", client.id).Warn("dropping slow websocket client")
				h.drop(client)
			}
		}
	}
}

func (h *WSHub) drop(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// SendTo queues msg for one client. It reports false when the client is
// gone or its queue is full.
func (h *WSHub) SendTo(client *WSClient, msg WSMessage) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub. The client is registered when Register
// returns, so SendTo reaches it immediately. It reports false once the hub
// stopped.
func (h *WSHub) Register(client *WSClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[client] = true
	h.log.WithField("client", client.id).Debug("websocket client connected")
	return true
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
