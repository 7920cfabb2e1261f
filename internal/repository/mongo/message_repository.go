package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
)

const messageCollection = "messages"

// MessageRepository is the persisted message log — the single source of
// truth for conversation history.
type MessageRepository struct {
	DB *mongo.Database
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) collection() *mongo.Collection {
	return r.DB.Collection(messageCollection)
}

// Append validates and persists a new message with status "sent". The
// conversation id is always derived here, never taken from the caller, so
// one derivation path exists for the whole system.
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
	if _, err := r.collection().InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListByConversation returns one page of a conversation's messages,
// oldest first. Messages with the same timestamp are ordered by _id; the
// ObjectID is assigned at persistence time and is the authoritative
// tiebreak.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int64) ([]*domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection().Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*domain.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateStatus advances the status of the given messages, constrained to
// messages addressed to receiverID whose current status ranks strictly
// below newStatus. A caller can only advance messages sent TO them, and a
// status never moves backward. Zero matched documents is not an error; the
// caller may redundantly mark already-read messages.
func (r *MessageRepository) UpdateStatus(ctx context.Context, ids []primitive.ObjectID, newStatus domain.MessageStatus, receiverID string) (int64, error) {
	if !newStatus.Valid() {
		return 0, domain.ErrInvalidStatus
	}
	if len(ids) == 0 {
		return 0, nil
	}

	filter := bson.M{
		"_id":         bson.M{"$in": ids},
		"receiver_id": receiverID,
		"status":      bson.M{"$in": lowerStatuses(newStatus)},
	}
	res, err := r.collection().UpdateMany(ctx, filter, bson.M{"$set": bson.M{"status": newStatus}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// CountUnread counts messages addressed to participantID that have not been
// read. A non-empty counterpartID scopes the count to that pair's
// conversation.
func (r *MessageRepository) CountUnread(ctx context.Context, participantID, counterpartID string) (int64, error) {
	filter := bson.M{
		"receiver_id": participantID,
		"status":      bson.M{"$ne": domain.StatusRead},
	}
	if counterpartID != "" {
		filter["conversation_id"] = conversation.ID(participantID, counterpartID)
	}
	return r.collection().CountDocuments(ctx, filter)
}

// DistinctConversationIDs returns every conversation the participant has
// prior history in, as sender or receiver. Used for connect-time
// auto-subscription and presence scoping.
func (r *MessageRepository) DistinctConversationIDs(ctx context.Context, participantID string) ([]string, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_id": participantID},
		bson.M{"receiver_id": participantID},
	}}
	values, err := r.collection().Distinct(ctx, "conversation_id", filter)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// LatestInConversation returns the newest message of a conversation, or nil
// when the conversation has no messages yet.
func (r *MessageRepository) LatestInConversation(ctx context.Context, conversationID string) (*domain.Message, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

	msg := &domain.Message{}
	err := r.collection().FindOne(ctx, bson.M{"conversation_id": conversationID}, opts).Decode(msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Empty conversation is not an application error
		}
		return nil, err
	}
	return msg, nil
}

// ListUndelivered returns messages addressed to receiverID that are still in
// the "sent" state. Called when the receiver connects, so pending messages
// can be upgraded to delivered.
func (r *MessageRepository) ListUndelivered(ctx context.Context, receiverID string) ([]*domain.Message, error) {
	filter := bson.M{
		"receiver_id": receiverID,
		"status":      domain.StatusSent,
	}
	cursor, err := r.collection().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*domain.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// lowerStatuses returns the statuses ranking strictly below target. The
// update filter matches only these, which makes status transitions
// monotonic: a regressing update matches nothing.
func lowerStatuses(target domain.MessageStatus) []domain.MessageStatus {
	all := []domain.MessageStatus{domain.StatusSent, domain.StatusDelivered, domain.StatusRead}
	var lower []domain.MessageStatus
	for _, s := range all {
		if s.Rank() < target.Rank() {
			lower = append(lower, s)
		}
	}
	return lower
}
