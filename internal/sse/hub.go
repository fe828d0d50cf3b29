// Package sse fans change notifications out to connected browsers.
package sse

import (
	"encoding/json"
	"fmt"
	"sync"

	"furniture-erp/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification names sent to the browser
const (
	EventOrdersChanged   = "orders:changed"
	EventProductsChanged = "products:changed"
	EventConnected       = "connected"
)

const clientBuffer = 64

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Format renders the event in text/event-stream framing
func (e Event) Format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.EventType, e.Data)
}

// NewEvent builds an event whose data is the JSON encoding of payload
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return Event{EventType: eventType, Data: string(data)}
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// NewClient creates a client with a buffered event channel
func NewClient(userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan Event, clientBuffer),
	}
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
	logger  *zap.Logger
}

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  util.GetLogger(),
	}
}

// Register adds a new client to the hub. Registering on a closed hub closes
// the client's channel immediately.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(client.Events)
		return
	}

	h.clients[client.ID] = client
	util.SSEClients.Set(float64(len(h.clients)))
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		util.SSEClients.Set(float64(len(h.clients)))
		h.logger.Debug("SSE client unregistered",
			zap.String("client_id", clientID),
			zap.Int("total", len(h.clients)),
		)
	}
}

// Broadcast sends an event to all connected clients. Slow clients whose
// buffer is full miss the event; they re-fetch on the next one.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			h.logger.Warn("SSE client buffer full, skipping event",
				zap.String("client_id", client.ID),
				zap.String("event", event.EventType),
			)
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		close(client.Events)
		delete(h.clients, id)
	}
	h.closed = true
	util.SSEClients.Set(0)
}
