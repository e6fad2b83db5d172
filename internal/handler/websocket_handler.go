package handler

import (
	"context"
	"encoding/json"

	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/internal/service"
	internalWS "clinician-dashboard-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	commandRoute = "route"
	commandDraft = "draft"
)

// clientCommand is a frame sent by the dashboard over the socket.
type clientCommand struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	Key  string `json:"key,omitempty"`
	Text string `json:"text,omitempty"`
}

type WebSocketHandler struct {
	hub           *internalWS.Hub
	tabs          service.ITabService
	conversations service.IConversationService
	logger        logger.ILogger
}

func NewWebSocketHandler(hub *internalWS.Hub, tabs service.ITabService, conversations service.IConversationService, log logger.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:           hub,
		tabs:          tabs,
		conversations: conversations,
		logger:        log,
	}
	hub.SetInboundHandler(h)
	return h
}

func (h *WebSocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

func (h *WebSocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WebSocketHandler", "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		id := internalWS.ServeWs(h.hub, conn)
		h.logger.Info("WebSocketHandler", "WebSocket session ended", map[string]interface{}{"client_id": id})
	})(c)
}

// HandleInbound applies route observations and draft updates pushed by clients.
func (h *WebSocketHandler) HandleInbound(clientID uuid.UUID, frame []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(frame, &cmd); err != nil {
		h.logger.Warn("WebSocketHandler", "Ignoring malformed frame", map[string]interface{}{"client_id": clientID, "error": err})
		return
	}

	ctx := context.Background()
	switch cmd.Type {
	case commandRoute:
		if _, err := h.tabs.ObserveRoute(ctx, cmd.Path); err != nil {
			h.logger.Debug("WebSocketHandler", "Route not reconciled", map[string]interface{}{"path": cmd.Path, "error": err})
		}
	case commandDraft:
		if cmd.Key != "" {
			h.conversations.SaveDraft(ctx, cmd.Key, cmd.Text)
		}
	default:
		h.logger.Warn("WebSocketHandler", "Unknown command", map[string]interface{}{"client_id": clientID, "type": cmd.Type})
	}
}
