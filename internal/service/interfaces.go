package service

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"servly-chat-server/internal/domain"
)

// --- Service Interfaces ---

// IUserService defines the interface for the auth collaborator's
// user-facing logic.
type IUserService interface {
	Register(name, email, password string, role domain.Role) (*domain.User, error)
	Login(email, password string) (*domain.User, error)
	GetUserByID(id uuid.UUID) (*domain.User, error)
}

// IConversationService defines the read-side conversation queries.
type IConversationService interface {
	ListConversations(ctx context.Context, participantID uuid.UUID) ([]*ConversationSummary, error)
	History(ctx context.Context, participantID, counterpartID uuid.UUID, limit, offset int64) (*ConversationHistory, error)
}

// --- Repository Interfaces ---

// IUserRepository defines the interface for user persistence.
type IUserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByID(id uuid.UUID) (*domain.User, error)
}

// IBookingRepository exposes the booking relationships the messaging core
// reads.
type IBookingRepository interface {
	CompletedCounterparts(participantID uuid.UUID) ([]uuid.UUID, error)
	HasCompletedBooking(a, b uuid.UUID) (bool, error)
}

// IMessageRepository defines the interface for the message store.
type IMessageRepository interface {
	Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string, limit, offset int64) ([]*domain.Message, error)
	UpdateStatus(ctx context.Context, ids []primitive.ObjectID, newStatus domain.MessageStatus, receiverID string) (int64, error)
	CountUnread(ctx context.Context, participantID, counterpartID string) (int64, error)
	DistinctConversationIDs(ctx context.Context, participantID string) ([]string, error)
	LatestInConversation(ctx context.Context, conversationID string) (*domain.Message, error)
	ListUndelivered(ctx context.Context, receiverID string) ([]*domain.Message, error)
}
