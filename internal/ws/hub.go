package ws

import (
	"encoding/json"
	"sync"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"
)

// Hub fans ledger events out to the live connections of their owner.
// It satisfies service.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

// Unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
	logger.Debug("ws client unregistered", "user_id", c.UserID)
}

// Publish queues event for every connection of ownerID. A client whose
// queue is full misses the event; Publish never waits.
func (h *Hub) Publish(ownerID string, event domain.LedgerEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[ownerID]
	if len(set) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("ws marshal event failed", "error", err, "type", event.Type)
		return
	}

	for c := range set {
		select {
		case c.Send <- payload:
		default:
			logger.Warn("ws send queue full, dropping event", "user_id", ownerID, "type", event.Type)
		}
	}
}

// Connections reports the number of live connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
