// Package http exposes the WebSocket endpoint and authenticates the
// handshake before any message is accepted.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/domain"
	"github.com/Destroyer690420/stakex-sub001/internal/modules/gateway/ws"
	"github.com/Destroyer690420/stakex-sub001/pkg/logger"
	"github.com/Destroyer690420/stakex-sub001/pkg/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler handles HTTP/WebSocket requests
type Handler struct {
	handler domain.MessageHandler
	manager *ws.Manager
	userSvc service.UserService
}

// NewHandler creates a new HTTP handler
func NewHandler(handler domain.MessageHandler, manager *ws.Manager, userSvc service.UserService) *Handler {
	return &Handler{
		handler: handler,
		manager: manager,
		userSvc: userSvc,
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})
}

// NewServer builds the gin engine for the gateway service.
func NewServer(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware())
	h.RegisterRoutes(r)
	return r
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// bearerToken pulls the token from the query param or Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// HandleWebSocket authenticates and upgrades a websocket request.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Create context with Request ID for WebSocket
	ctx := logger.WebSocketContext(r)
	requestID := logger.GetRequestID(ctx)

	logger.Info(ctx).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection request")

	token := bearerToken(r)
	if token == "" {
		logger.Warn(ctx).Msg("missing auth token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, username, _, err := h.userSvc.ValidateToken(r.Context(), token)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Msg("token validation failed")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("websocket upgrade failed")
		return
	}

	logger.Info(ctx).
		Int64("user_id", userID).
		Str("username", username).
		Msg("websocket connection established")

	client := h.manager.Register(conn, userID, username)

	go client.WritePump()
	go client.ReadPump(func(userID int64, username string, message []byte) {
		// Create new context with Request ID for each message
		msgCtx := logger.WithRequestID(context.Background(), logger.GenerateRequestID())
		msgCtx = logger.WithFields(msgCtx, map[string]interface{}{
			"user_id":       userID,
			"ws_request_id": requestID, // Original WS connection ID
		})

		logger.Debug(msgCtx).
			Int("message_size", len(message)).
			Msg("websocket message received")

		if err := h.handler.HandleMessage(msgCtx, userID, username, message); err != nil {
			logger.Warn(msgCtx).
				Err(err).
				Msg("failed to handle message")

			errorResp := map[string]interface{}{
				"command": "error",
				"error":   err.Error(),
			}
			if jsonResp, err := json.Marshal(errorResp); err == nil {
				h.manager.SendToUser(userID, jsonResp)
			}
		}
	})
}
