package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gator-forum/internal/events"

	"github.com/google/uuid"
)

// MessageToSend defines the structure for sending a message to a specific user.
type MessageToSend struct {
	TargetUserID uuid.UUID
	Payload      []byte
}

// Notification wraps an event for a client. Direct is set when the event
// concerns content the receiving user wrote.
type Notification struct {
	Direct bool         `json:"direct"`
	Event  events.Event `json:"event"`
}

// Hub maintains the set of active clients and fans forum events out to them.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	clients map[uuid.UUID]map[*Client]bool

	broadcast  chan []byte
	sendDirect chan *MessageToSend
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Guards clients for readers outside the Run loop.
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		sendDirect: make(chan *MessageToSend, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's processing loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.logger.Debug("websocket client registered", "user", client.UserID, "connections", len(h.clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if userClients, ok := h.clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					close(client.Send)
					if len(userClients) == 0 {
						delete(h.clients, client.UserID)
					}
					h.logger.Debug("websocket client unregistered", "user", client.UserID)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, userClients := range h.clients {
				for client := range userClients {
					h.deliver(client, message)
				}
			}
			h.mu.RUnlock()

		case direct := <-h.sendDirect:
			h.mu.RLock()
			for client := range h.clients[direct.TargetUserID] {
				h.deliver(client, direct.Payload)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		h.logger.Warn("websocket send buffer full, dropping message", "user", client.UserID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, userClients := range h.clients {
		for client := range userClients {
			close(client.Send)
		}
		delete(h.clients, userID)
	}
}

// Connections reports the number of open client connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, userClients := range h.clients {
		n += len(userClients)
	}
	return n
}

// Publish broadcasts the event to everyone and, when the event targets
// someone else's content, sends that owner a direct copy.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(Notification{Event: event})
	if err != nil {
		return err
	}
	if err := h.enqueue(ctx, h.broadcast, payload); err != nil {
		return err
	}

	if event.OwnerID == uuid.Nil || event.OwnerID == event.ActorID {
		return nil
	}
	direct, err := json.Marshal(Notification{Direct: true, Event: event})
	if err != nil {
		return err
	}
	return h.SendDirectMessage(ctx, event.OwnerID, direct)
}

// SendDirectMessage queues payload for every connection of targetUserID.
func (h *Hub) SendDirectMessage(ctx context.Context, targetUserID uuid.UUID, payload []byte) error {
	if h.stopped() {
		return nil
	}
	select {
	case h.sendDirect <- &MessageToSend{TargetUserID: targetUserID, Payload: payload}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		h.logger.Warn("timeout queuing direct message", "user", targetUserID)
		return nil
	}
}

// enqueue drops payload once the hub has stopped, since nobody is left to
// deliver it.
func (h *Hub) enqueue(ctx context.Context, ch chan []byte, payload []byte) error {
	if h.stopped() {
		return nil
	}
	select {
	case ch <- payload:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		h.logger.Warn("timeout queuing broadcast")
		return nil
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
