package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"servly-chat-server/internal/auth"
	"servly-chat-server/internal/config"
	"servly-chat-server/internal/domain"
	"servly-chat-server/internal/hub"
	"servly-chat-server/internal/service"
)

type contextKey string

const userIDKey contextKey = "userID"

const defaultHistoryLimit = 100

// APIHandler serves the HTTP read side: the auth collaborator surface,
// conversation listing/history, and the non-realtime send fallback.
type APIHandler struct {
	users         service.IUserService
	conversations service.IConversationService
	messages      service.IMessageRepository
	hub           *hub.Hub
	cfg           *config.Config
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(users service.IUserService, conversations service.IConversationService, messages service.IMessageRepository, h *hub.Hub, cfg *config.Config, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		users:         users,
		conversations: conversations,
		messages:      messages,
		hub:           h,
		cfg:           cfg,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Routes registers all HTTP endpoints on the router.
func (h *APIHandler) Routes(r *mux.Router) {
	r.HandleFunc("/api/auth/register", h.handleRegister).Methods("POST")
	r.HandleFunc("/api/auth/login", h.handleLogin).Methods("POST")
	r.Handle("/api/conversations", h.requireAuth(http.HandlerFunc(h.handleListConversations))).Methods("GET")
	r.Handle("/api/conversations/{counterpartId}/messages", h.requireAuth(http.HandlerFunc(h.handleHistory))).Methods("GET")
	r.Handle("/api/messages", h.requireAuth(http.HandlerFunc(h.handleSendMessage))).Methods("POST")
}

// requireAuth parses the bearer token and stores the caller's id in the
// request context.
func (h *APIHandler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer credential")
			return
		}
		claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credential")
			return
		}
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credential")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func callerID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=customer provider admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Body       string `json:"body" validate:"required"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (h *APIHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *APIHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *APIHandler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversations.ListConversations(r.Context(), callerID(r))
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *APIHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	counterpartID, err := uuid.Parse(mux.Vars(r)["counterpartId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid counterpart id")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryLimit)
	offset := queryInt(r, "offset", 0)

	history, err := h.conversations.History(r.Context(), callerID(r), counterpartID, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrNoRelationship) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("failed to load history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// handleSendMessage is the non-realtime send fallback: same persistence as
// the socket path, no live channel required.
func (h *APIHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.messages.Append(r.Context(), callerID(r).String(), req.ReceiverID, req.Body)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBody) || errors.Is(err, domain.ErrSelfMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to persist message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Publish(msg)
	writeJSON(w, http.StatusCreated, msg)
}

func (h *APIHandler) respondWithToken(w http.ResponseWriter, status int, user *domain.User) {
	token, err := auth.GenerateToken(h.cfg.JWTSecret, h.cfg.TokenTTL, user.ID, user.Role)
	if err != nil {
		h.logger.Error("failed to mint token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, authResponse{User: user, Token: token})
}

func (h *APIHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
