package domain

import "time"

// WebSocketMessage is the standard envelope for all realtime traffic in
// both directions.
type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client -> server event types.
const (
	EventJoin   = "join"
	EventSend   = "send"
	EventTyping = "typing"
	EventRead   = "read"
)

// Server -> client event types.
const (
	EventNewMessage = "new_message"
	EventDelivered  = "message_delivered"
	EventReadAck    = "read_ack"
	EventPresence   = "presence"
	EventError      = "error_message"
)

// Presence statuses carried in PresencePayload.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// JoinPayload is the payload of a 'join' request.
type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendPayload is the payload of a 'send' request.
type SendPayload struct {
	To             string `json:"to"`
	Body           string `json:"body"`
	ConversationID string `json:"conversationId"`
}

// TypingPayload is the payload of a 'typing' request and of the broadcast
// it produces. Ephemeral; never persisted.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId,omitempty"`
	To             string `json:"to,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

// ReadPayload is the payload of a 'read' request.
type ReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// NewMessagePayload is the payload of a 'new_message' broadcast.
type NewMessagePayload struct {
	ConversationID string   `json:"conversationId"`
	Message        *Message `json:"message"`
}

// DeliveredPayload notifies a sender that messages reached a live channel.
type DeliveredPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// ReadAckPayload notifies conversation subscribers that messages were read.
type ReadAckPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// PresencePayload is the payload of a 'presence' broadcast.
type PresencePayload struct {
	ParticipantID string    `json:"participantId"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// SystemPayload is the payload of an 'error_message' event.
type SystemPayload struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
