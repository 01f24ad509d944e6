// internal/ws/hub.go
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"fanclash-service/internal/domain/payment"

	"go.uber.org/zap"
)

// Hub pushes payment status transitions to websocket subscribers. Clients
// subscribe to a single CheckoutRequestID; the reconciler publishes once a
// transaction leaves pending. Polling remains the fallback for clients that
// never connect.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	updates    chan *payment.StatusUpdate

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		updates:     make(chan *payment.StatusUpdate, 256),
		logger:      logger,
	}
}

// Register enqueues a client subscription.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister removes a client subscription.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Publish hands a status update to the hub without blocking the caller.
// A full buffer drops the update; subscribers still learn the outcome by
// polling.
func (h *Hub) Publish(update *payment.StatusUpdate) {
	select {
	case h.updates <- update:
	default:
		h.logger.Warn("ws update buffer full, dropping status update",
			zap.String("checkout_request_id", update.CheckoutRequestID),
		)
	}
}

// Run owns the subscriber map until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.subscribers[client.checkoutID] == nil {
				h.subscribers[client.checkoutID] = make(map[*Client]bool)
			}
			h.subscribers[client.checkoutID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.subscribers[client.checkoutID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.subscribers, client.checkoutID)
					}
				}
			}
			h.mu.Unlock()

		case update := <-h.updates:
			h.broadcast(update)
		}
	}
}

func (h *Hub) broadcast(update *payment.StatusUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("failed to marshal status update", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.subscribers[update.CheckoutRequestID]
	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer: drop it rather than stall the hub.
			delete(clients, client)
			close(client.send)
		}
	}
	if len(clients) == 0 {
		delete(h.subscribers, update.CheckoutRequestID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, clients := range h.subscribers {
		for client := range clients {
			close(client.send)
		}
		delete(h.subscribers, id)
	}
}

// SubscriberCount reports how many clients watch the given checkout id.
func (h *Hub) SubscriberCount(checkoutID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[checkoutID])
}
