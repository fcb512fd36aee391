// Package websocket pushes new global activities to connected dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/xelth-com/centerhub/internal/models"
	"go.uber.org/zap"
)

// MessageActivity is the type of a pushed activity
const MessageActivity = "ACTIVITY"

// ErrHubStopped is returned by Publish after Run has returned
var ErrHubStopped = errors.New("hub stopped")

// Message is the envelope written to every listener
type Message struct {
	Type     string                 `json:"type"`
	Activity *models.GlobalActivity `json:"activity,omitempty"`
}

type outbound struct {
	centerID string
	payload  []byte
}

// Hub maintains the set of active listeners and broadcasts activities
type Hub struct {
	// Registered clients: client id -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}

	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled and closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, c := range h.clients {
			close(c.send)
			delete(h.clients, id)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("activity listener connected", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				h.log.Debug("activity listener disconnected", zap.String("client_id", client.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				if c.CenterID != "" && c.CenterID != msg.centerID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// slow listener
					delete(h.clients, id)
					close(c.send)
					h.log.Warn("dropping slow activity listener", zap.String("client_id", id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a for every listener. It implements activity.Publisher.
func (h *Hub) Publish(ctx context.Context, a models.GlobalActivity) error {
	payload, err := json.Marshal(Message{Type: MessageActivity, Activity: &a})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{centerID: a.CenterID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of connected listeners
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
