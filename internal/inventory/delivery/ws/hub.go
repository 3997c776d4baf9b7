package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tair/taghub/internal/inventory/domain"
	"github.com/tair/taghub/pkg/logger"
)

// Message types pushed to dashboards.
const (
	MessageEvent  = "event"
	MessageAlerts = "alerts"
)

// Message is the envelope of every frame sent on the feed.
type Message struct {
	Type   string    `json:"type"`
	SentAt time.Time `json:"sent_at"`
	Data   any       `json:"data"`
}

// Hub maintains the set of connected dashboards and fans messages out to
// them. Slow clients whose buffer is full miss messages instead of blocking
// the publisher.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			logger.Logger.Debug().Str("client_id", client.ID).Int("clients", count).Msg("Dashboard connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Logger.Debug().Str("client_id", client.ID).Msg("Dashboard disconnected")

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every connected dashboard and returns how
// many received it.
func (h *Hub) Broadcast(messageType string, data any) (int, error) {
	frame, err := json.Marshal(Message{Type: messageType, SentAt: time.Now().UTC(), Data: data})
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s message: %w", messageType, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.clients {
		select {
		case client.send <- frame:
			delivered++
		default:
			logger.Logger.Warn().Str("client_id", client.ID).Str("type", messageType).Msg("Dashboard buffer full, message dropped")
		}
	}
	return delivered, nil
}

// Name implements events.Sink.
func (h *Hub) Name() string { return "websocket" }

// Handle implements events.Sink by forwarding each committed event.
func (h *Hub) Handle(_ context.Context, event domain.Event) error {
	_, err := h.Broadcast(MessageEvent, event)
	return err
}
