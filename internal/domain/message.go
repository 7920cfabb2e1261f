package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageStatus is the delivery state of a direct message. It only ever
// moves forward: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Rank orders statuses for the monotonic-transition guard. Unknown
// statuses rank below everything so they can never overwrite a real one.
func (s MessageStatus) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is one of the three known statuses.
func (s MessageStatus) Valid() bool {
	return s.Rank() > 0
}

// Message is a single direct message between two participants, stored in
// MongoDB. Only Status (and Body/Edited on an edit) change after insert.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversationId"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	ReceiverID     string             `bson:"receiver_id" json:"receiverId"`
	Body           string             `bson:"body" json:"body"`
	Status         MessageStatus      `bson:"status" json:"status"`
	Edited         bool               `bson:"edited,omitempty" json:"edited,omitempty"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}
