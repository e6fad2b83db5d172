package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"clinician-dashboard-be/internal/constant"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Envelope is the frame every push is wrapped in.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ConversationPayload struct {
	Key      string          `json:"key"`
	Messages []model.Message `json:"messages"`
}

type NavigatePayload struct {
	Path string `json:"path"`
}

// InboundHandler receives frames sent by clients.
type InboundHandler interface {
	HandleInbound(clientID uuid.UUID, frame []byte)
}

// Hub fans pushes out to every connected dashboard client. Its producer
// methods are called with other components locked and never block: a client
// whose buffer is full is dropped.
type Hub struct {
	// Registered clients map: connection id -> client
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	inbound InboundHandler

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]*Client),
		logger:     log,
	}
}

func (h *Hub) SetInboundHandler(handler InboundHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inbound = handler
}

// Run serves registrations until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID, "clients": count})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
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

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one envelope to all connected clients.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	frame, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode envelope", map[string]interface{}{"type": eventType, "error": err})
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- frame:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"client_id": client.ID})
		go h.remove(client)
	}
}

func (h *Hub) ConversationUpdated(key string, messages []model.Message) {
	h.Broadcast(constant.EventConversationUpdated, ConversationPayload{Key: key, Messages: messages})
}

func (h *Hub) Navigate(path string) {
	h.Broadcast(constant.EventNavigate, NavigatePayload{Path: path})
}

func (h *Hub) TabsUpdated(snapshot model.TabSnapshot) {
	h.Broadcast(constant.EventTabsUpdated, snapshot)
}

func (h *Hub) DeliverToast(toast model.Toast) {
	h.Broadcast(constant.EventToast, toast)
}

func (h *Hub) DeliverLogEntry(entry model.NotificationLogEntry) {
	h.Broadcast(constant.EventNotificationLog, entry)
}

func (h *Hub) handleInbound(clientID uuid.UUID, frame []byte) {
	h.mu.RLock()
	handler := h.inbound
	h.mu.RUnlock()
	if handler != nil {
		handler.HandleInbound(clientID, frame)
	}
}
