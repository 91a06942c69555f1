package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types published on the admin feed.
const (
	EventRegistrationCreated  = "registration.created"
	EventRegistrationUpdated  = "registration.updated"
	EventRegistrationDeleted  = "registration.deleted"
	EventRegistrationApproved = "registration.approved"
	EventRegistrationRejected = "registration.rejected"
	EventRegistrationRestored = "registration.restored"
	EventTransferRequested    = "transfer.requested"
	EventTransferProcessed    = "transfer.processed"
	EventVerificationChanged  = "verification.changed"
	EventExpiryRefreshed      = "expiry.refreshed"
)

// Event is a change notification sent to connected admin clients.
type Event struct {
	Type           string      `json:"type"`
	RegistrationID string      `json:"registration_id,omitempty"`
	At             time.Time   `json:"at"`
	Data           interface{} `json:"data,omitempty"`
}

// Hub fans events out to every connected client. Delivery is best effort:
// a client whose buffer is full is dropped.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates an idle hub; call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.setCount(0)
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.logger.Debug("realtime client registered", zap.String("admin", client.admin), zap.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
				h.logger.Debug("realtime client unregistered", zap.String("admin", client.admin), zap.Int("clients", len(h.clients)))
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("realtime client send buffer full, disconnecting", zap.String("admin", client.admin))
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Stop terminates Run and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues an event for broadcast. It never blocks the caller.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("marshal realtime event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("realtime broadcast buffer full, dropping event", zap.String("type", event.Type))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
