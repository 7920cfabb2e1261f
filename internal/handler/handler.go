package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"servly-chat-server/internal/auth"
	"servly-chat-server/internal/domain"
	"servly-chat-server/internal/hub"
	"servly-chat-server/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins (development)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errMissingCredential = errors.New("missing bearer credential")

// WebsocketHandler upgrades realtime connections. Authentication happens at
// handshake time: an invalid or missing credential is rejected before any
// event is processed.
type WebsocketHandler struct {
	hub       *hub.Hub
	users     service.IUserService
	jwtSecret string
	logger    *zap.Logger
}

// NewWebsocketHandler creates a new WebsocketHandler.
func NewWebsocketHandler(h *hub.Hub, users service.IUserService, jwtSecret string, logger *zap.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:       h,
		users:     users,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// HandleConnection handles GET /ws. The bearer credential comes from the
// Authorization header or, for browser WebSocket clients that cannot set
// headers, the token query parameter.
func (h *WebsocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		h.logger.Info("rejected realtime handshake", zap.Error(err))
		http.Error(w, "invalid or missing credential", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.ServeWs(conn, user)
}

func (h *WebsocketHandler) authenticate(r *http.Request) (*domain.User, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, errMissingCredential
	}

	claims, err := auth.ParseToken(h.jwtSecret, token)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, err
	}

	// Signature alone is not enough; the participant must still exist.
	user, err := h.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("unknown participant")
	}
	return user, nil
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
