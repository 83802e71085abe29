// Package local provides local adapters for the gateway module.
package local

import (
	"context"
	"encoding/json"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/ws"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
)

// Handler publishes game events to WebSocket clients.
// It implements service.GatewayService.
type Handler struct {
	wsManager *ws.Manager
}

// NewHandler creates a new gateway handler.
func NewHandler(wsManager *ws.Manager) *Handler {
	return &Handler{
		wsManager: wsManager,
	}
}

// encode wraps the event in the standard server envelope.
func (h *Handler) encode(room, command string, data interface{}) []byte {
	msg, err := json.Marshal(map[string]interface{}{
		"game_code": room,
		"command":   command,
		"data":      data,
	})
	if err != nil {
		logger.Error(context.Background()).Err(err).
			Str("room", room).
			Str("command", command).
			Msg("gateway: failed to encode event")
		return nil
	}
	return msg
}

// Broadcast fans the event out to every connection in the room.
func (h *Handler) Broadcast(room, command string, data interface{}) {
	if msg := h.encode(room, command, data); msg != nil {
		h.wsManager.Broadcast(room, msg)
	}
}

// SendToUser delivers the event to one user's connection.
func (h *Handler) SendToUser(userID int64, room, command string, data interface{}) {
	if msg := h.encode(room, command, data); msg != nil {
		h.wsManager.SendToUser(userID, msg)
	}
}
