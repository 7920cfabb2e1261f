// Package memory provides an in-memory message store implementing the same
// contract as the MongoDB repository. It backs tests and local experiments;
// the server binary always runs against MongoDB.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
)

// MessageRepository is an in-memory message log guarded by a mutex.
type MessageRepository struct {
	mu       sync.Mutex
	messages []*domain.Message
}

// NewMessageRepository creates an empty repository.
func NewMessageRepository() *MessageRepository {
	return &MessageRepository{}
}

// Append validates and stores a new message with status "sent".
func (r *MessageRepository) Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.ErrEmptyBody
	}
	if senderID == receiverID {
		return nil, domain.ErrSelfMessage
	}

	msg := &domain.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conversation.ID(senderID, receiverID),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		Status:         domain.StatusSent,
		Timestamp:      time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return copyMessage(msg), nil
}

// ListByConversation returns one page, oldest first, ordered by
// (timestamp, id).
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int64) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			matched = append(matched, copyMessage(m))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) < 0
	})

	if offset >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < int64(len(matched)) {
		matched = matched[:limit]
	}
	return matched, nil
}

// UpdateStatus advances statuses, constrained to the receiver and to
// forward transitions.
func (r *MessageRepository) UpdateStatus(ctx context.Context, ids []primitive.ObjectID, newStatus domain.MessageStatus, receiverID string) (int64, error) {
	if !newStatus.Valid() {
		return 0, domain.ErrInvalidStatus
	}

	idSet := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var modified int64
	for _, m := range r.messages {
		if idSet[m.ID] && m.ReceiverID == receiverID && m.Status.Rank() < newStatus.Rank() {
			m.Status = newStatus
			modified++
		}
	}
	return modified, nil
}

// CountUnread counts not-yet-read messages addressed to participantID,
// optionally scoped to one counterpart.
func (r *MessageRepository) CountUnread(ctx context.Context, participantID, counterpartID string) (int64, error) {
	var convID string
	if counterpartID != "" {
		convID = conversation.ID(participantID, counterpartID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, m := range r.messages {
		if m.ReceiverID != participantID || m.Status == domain.StatusRead {
			continue
		}
		if convID != "" && m.ConversationID != convID {
			continue
		}
		count++
	}
	return count, nil
}

// DistinctConversationIDs returns every conversation the participant
// appears in.
func (r *MessageRepository) DistinctConversationIDs(ctx context.Context, participantID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, m := range r.messages {
		if m.SenderID != participantID && m.ReceiverID != participantID {
			continue
		}
		if !seen[m.ConversationID] {
			seen[m.ConversationID] = true
			ids = append(ids, m.ConversationID)
		}
	}
	return ids, nil
}

// LatestInConversation returns the newest message, or nil for an empty
// conversation.
func (r *MessageRepository) LatestInConversation(ctx context.Context, conversationID string) (*domain.Message, error) {
	messages, err := r.ListByConversation(ctx, conversationID, 0, 0)
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return messages[len(messages)-1], nil
}

// ListUndelivered returns messages to receiverID still in "sent".
func (r *MessageRepository) ListUndelivered(ctx context.Context, receiverID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*domain.Message
	for _, m := range r.messages {
		if m.ReceiverID == receiverID && m.Status == domain.StatusSent {
			pending = append(pending, copyMessage(m))
		}
	}
	return pending, nil
}

func copyMessage(m *domain.Message) *domain.Message {
	c := *m
	return &c
}
