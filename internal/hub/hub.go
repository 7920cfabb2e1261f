package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
	"servly-chat-server/internal/registry"
	"servly-chat-server/internal/service"
)

// ClientRequest bundles a client with their incoming event.
type ClientRequest struct {
	Client  *Client
	Message domain.WebSocketMessage
}

// Hub owns the realtime channel state machine: it registers authenticated
// connections, subscribes them to conversation rooms, and processes inbound
// events against the message store and the connection registry. All state
// mutation happens on the Run loop.
type Hub struct {
	connections map[*Client]bool
	rooms       map[string]*conversationRoom
	registry    *registry.Registry
	messages    chan *ClientRequest
	register    chan *Client
	unregister  chan *Client
	published   chan *domain.Message
	messageRepo service.IMessageRepository
	logger      *zap.Logger
}

func NewHub(reg *registry.Registry, messageRepo service.IMessageRepository, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*Client]bool),
		rooms:       make(map[string]*conversationRoom),
		registry:    reg,
		messages:    make(chan *ClientRequest),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		published:   make(chan *domain.Message, 64),
		messageRepo: messageRepo,
		logger:      logger,
	}
}

// Run dispatches registration, disconnect, and inbound events on a single
// loop, which is what lets the room and connection maps go lock-free.
// Repository calls made by the handlers execute inline on this loop, so a
// stalled store call delays event processing for every connection until it
// returns.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleConnect(client)
		case client := <-h.unregister:
			h.handleDisconnect(client)
		case request := <-h.messages:
			h.handleMessage(request)
		case msg := <-h.published:
			h.deliverPersisted(msg, nil)
		}
	}
}

// ServeWs attaches an already-authenticated connection to the hub.
func (h *Hub) ServeWs(conn *websocket.Conn, user *domain.User) {
	client := &Client{
		UserID: user.ID,
		Name:   user.Name,
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// Publish hands a message persisted outside the socket path (the HTTP send
// fallback) to the hub loop for broadcast and delivery upgrade.
func (h *Hub) Publish(msg *domain.Message) {
	h.published <- msg
}

// --- Connection lifecycle ---

func (h *Hub) handleConnect(client *Client) {
	h.connections[client] = true
	pid := client.participantID()

	// Last-writer-wins: a second connection from the same participant
	// displaces the first.
	if prev, ok := h.registry.Resolve(pid); ok {
		if prevClient, isClient := prev.(*Client); isClient && prevClient != client {
			prevClient.sendError("You have been connected from another location.")
			h.dropConnection(prevClient)
		}
	}
	h.registry.Register(pid, client)

	ctx := context.Background()
	convIDs, err := h.messageRepo.DistinctConversationIDs(ctx, pid)
	if err != nil {
		h.logger.Error("failed to load conversations on connect",
			zap.String("participant", pid), zap.Error(err))
	}
	for _, convID := range convIDs {
		h.room(convID).addClient(client)
	}

	h.broadcastPresence(client, domain.PresenceOnline)
	h.markDeliveredOnConnect(ctx, client)

	h.logger.Info("participant connected",
		zap.String("participant", pid),
		zap.Int("conversations", len(convIDs)))
}

func (h *Hub) handleDisconnect(client *Client) {
	if _, ok := h.connections[client]; !ok {
		return
	}
	pid := client.participantID()

	// A reconnect may already own the registration; only the current
	// holder announces offline.
	if current, ok := h.registry.Resolve(pid); ok && current == registry.Channel(client) {
		h.registry.Unregister(pid, client)
		h.broadcastPresence(client, domain.PresenceOffline)
	}

	h.dropConnection(client)
	h.logger.Info("participant disconnected", zap.String("participant", pid))
}

// dropConnection removes a client from all hub state and closes its send
// channel. Registry ownership is handled by the caller.
func (h *Hub) dropConnection(client *Client) {
	if _, ok := h.connections[client]; !ok {
		return
	}
	delete(h.connections, client)
	for id, room := range h.rooms {
		room.removeClient(client)
		if room.empty() {
			delete(h.rooms, id)
		}
	}
	close(client.Send)
}

// --- Event dispatch ---

func (h *Hub) handleMessage(req *ClientRequest) {
	switch req.Message.Type {
	case domain.EventJoin:
		h.handleJoin(req)
	case domain.EventSend:
		h.handleSend(req)
	case domain.EventTyping:
		h.handleTyping(req)
	case domain.EventRead:
		h.handleRead(req)
	default:
		req.Client.sendError(fmt.Sprintf("Unknown message type: %s", req.Message.Type))
	}
}

func (h *Hub) handleJoin(req *ClientRequest) {
	var payload domain.JoinPayload
	if err := parsePayload(req.Message.Payload, &payload); err != nil {
		req.Client.sendError("Invalid join payload.")
		return
	}
	if strings.TrimSpace(payload.ConversationID) == "" {
		req.Client.sendError("Conversation id is required.")
		return
	}
	// Authenticated is the only requirement; the relationship check lives
	// on the read side.
	h.room(payload.ConversationID).addClient(req.Client)
}

func (h *Hub) handleSend(req *ClientRequest) {
	var payload domain.SendPayload
	if err := parsePayload(req.Message.Payload, &payload); err != nil {
		req.Client.sendError("Invalid send payload.")
		return
	}
	if payload.To == "" {
		req.Client.sendError("Recipient is required.")
		return
	}

	msg, err := h.messageRepo.Append(context.Background(), req.Client.participantID(), payload.To, payload.Body)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyBody) || errors.Is(err, domain.ErrSelfMessage) {
			req.Client.sendError(err.Error())
			return
		}
		h.logger.Error("failed to persist message",
			zap.String("participant", req.Client.participantID()), zap.Error(err))
		req.Client.sendError("Failed to send message.")
		return
	}

	h.deliverPersisted(msg, req.Client)
}

func (h *Hub) handleTyping(req *ClientRequest) {
	var payload domain.TypingPayload
	if err := parsePayload(req.Message.Payload, &payload); err != nil {
		req.Client.sendError("Invalid typing payload.")
		return
	}

	convID := payload.ConversationID
	if payload.To != "" {
		convID = conversation.ID(req.Client.participantID(), payload.To)
	}
	if convID == "" {
		req.Client.sendError("Conversation id or recipient is required.")
		return
	}

	// Fire and forget: never persisted, last write wins on the client.
	raw, err := json.Marshal(domain.WebSocketMessage{
		Type: domain.EventTyping,
		Payload: domain.TypingPayload{
			ConversationID: convID,
			ParticipantID:  req.Client.participantID(),
			IsTyping:       payload.IsTyping,
		},
	})
	if err != nil {
		return
	}
	h.room(convID).broadcast(raw, req.Client)
}

func (h *Hub) handleRead(req *ClientRequest) {
	var payload domain.ReadPayload
	if err := parsePayload(req.Message.Payload, &payload); err != nil {
		req.Client.sendError("Invalid read payload.")
		return
	}

	var ids []primitive.ObjectID
	var hexIDs []string
	for _, raw := range payload.MessageIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		hexIDs = append(hexIDs, raw)
	}
	if len(ids) == 0 {
		req.Client.sendError("No valid message ids.")
		return
	}

	// Constrained to messages addressed to this participant; redundant or
	// foreign ids simply match nothing.
	n, err := h.messageRepo.UpdateStatus(context.Background(), ids, domain.StatusRead, req.Client.participantID())
	if err != nil {
		h.logger.Error("failed to update read state",
			zap.String("participant", req.Client.participantID()), zap.Error(err))
		req.Client.sendError("Failed to update read state.")
		return
	}
	if n == 0 {
		return
	}

	raw, err := json.Marshal(domain.WebSocketMessage{
		Type: domain.EventReadAck,
		Payload: domain.ReadAckPayload{
			ConversationID: payload.ConversationID,
			MessageIDs:     hexIDs,
		},
	})
	if err != nil {
		return
	}
	// Notify the other subscribers; the reader gets no receipt back.
	h.room(payload.ConversationID).broadcast(raw, req.Client)
}

// --- Delivery ---

// deliverPersisted broadcasts a freshly persisted message to its
// conversation's subscribers and upgrades it to delivered when the receiver
// has a live channel. sender is nil for messages persisted via the HTTP
// fallback.
func (h *Hub) deliverPersisted(msg *domain.Message, sender *Client) {
	room := h.room(msg.ConversationID)
	if sender != nil && !room.hasClient(sender) {
		room.addClient(sender)
	}

	raw, err := json.Marshal(domain.WebSocketMessage{
		Type:    domain.EventNewMessage,
		Payload: domain.NewMessagePayload{ConversationID: msg.ConversationID, Message: msg},
	})
	if err != nil {
		return
	}
	room.broadcast(raw, nil)

	ch, online := h.registry.Resolve(msg.ReceiverID)
	if !online {
		return
	}

	// The receiver may be online without having joined this conversation
	// yet (first contact); push directly to their channel.
	if receiverClient, isClient := ch.(*Client); !isClient || !room.hasClient(receiverClient) {
		ch.Enqueue(raw)
	}

	n, err := h.messageRepo.UpdateStatus(context.Background(),
		[]primitive.ObjectID{msg.ID}, domain.StatusDelivered, msg.ReceiverID)
	if err != nil {
		h.logger.Error("failed to mark message delivered",
			zap.String("message", msg.ID.Hex()), zap.Error(err))
		return
	}
	if n == 0 {
		return
	}
	msg.Status = domain.StatusDelivered

	delivered := domain.DeliveredPayload{
		ConversationID: msg.ConversationID,
		MessageIDs:     []string{msg.ID.Hex()},
	}
	if sender != nil {
		sender.sendEvent(domain.EventDelivered, delivered)
	} else if senderCh, ok := h.registry.Resolve(msg.SenderID); ok {
		if rawDelivered, err := json.Marshal(domain.WebSocketMessage{
			Type: domain.EventDelivered, Payload: delivered,
		}); err == nil {
			senderCh.Enqueue(rawDelivered)
		}
	}
}

// markDeliveredOnConnect upgrades messages still in "sent" addressed to a
// newly connected participant: they have now reached a live channel. Each
// affected conversation is notified so senders see the delivery.
func (h *Hub) markDeliveredOnConnect(ctx context.Context, client *Client) {
	pid := client.participantID()
	pending, err := h.messageRepo.ListUndelivered(ctx, pid)
	if err != nil {
		h.logger.Error("failed to list undelivered messages",
			zap.String("participant", pid), zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	ids := make([]primitive.ObjectID, 0, len(pending))
	byConversation := make(map[string][]string)
	for _, msg := range pending {
		ids = append(ids, msg.ID)
		byConversation[msg.ConversationID] = append(byConversation[msg.ConversationID], msg.ID.Hex())
	}

	n, err := h.messageRepo.UpdateStatus(ctx, ids, domain.StatusDelivered, pid)
	if err != nil {
		h.logger.Error("failed to mark pending messages delivered",
			zap.String("participant", pid), zap.Error(err))
		return
	}
	if n == 0 {
		return
	}

	for convID, hexIDs := range byConversation {
		raw, err := json.Marshal(domain.WebSocketMessage{
			Type:    domain.EventDelivered,
			Payload: domain.DeliveredPayload{ConversationID: convID, MessageIDs: hexIDs},
		})
		if err != nil {
			continue
		}
		h.room(convID).broadcast(raw, client)
	}
}

// --- Helpers ---

// room returns the subscriber set for a conversation, creating it on first
// use. Conversations exist implicitly; so do their rooms.
func (h *Hub) room(conversationID string) *conversationRoom {
	r, ok := h.rooms[conversationID]
	if !ok {
		r = newConversationRoom(conversationID, h)
		h.rooms[conversationID] = r
	}
	return r
}

// broadcastPresence announces a presence change to every conversation the
// client currently subscribes to — scoped, never global.
func (h *Hub) broadcastPresence(client *Client, status string) {
	raw, err := json.Marshal(domain.WebSocketMessage{
		Type: domain.EventPresence,
		Payload: domain.PresencePayload{
			ParticipantID: client.participantID(),
			Status:        status,
			Timestamp:     time.Now().UTC(),
		},
	})
	if err != nil {
		return
	}
	for _, room := range h.rooms {
		if room.hasClient(client) {
			room.broadcast(raw, client)
		}
	}
}

func parsePayload(payload interface{}, result interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return errors.New("failed to marshal payload")
	}
	return json.Unmarshal(payloadBytes, result)
}
