package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
)

// ErrNoRelationship is returned when a participant requests history with a
// counterpart they have no completed booking with. This check exists only
// on the read side; the realtime send path does not enforce it.
var ErrNoRelationship = errors.New("no completed booking with this participant")

// ConversationSummary is one row of a participant's conversation list.
type ConversationSummary struct {
	CounterpartID   uuid.UUID       `json:"counterpartId"`
	CounterpartName string          `json:"counterpartName"`
	CounterpartRole domain.Role     `json:"counterpartRole"`
	ConversationID  string          `json:"conversationId"`
	LastMessage     *domain.Message `json:"lastMessage,omitempty"`
	LastMessageTime time.Time       `json:"lastMessageTime"`
	UnreadCount     int64           `json:"unreadCount"`
}

// ConversationHistory is one page of a conversation.
type ConversationHistory struct {
	ConversationID string            `json:"conversationId"`
	Messages       []*domain.Message `json:"messages"`
}

// ConversationService reconstructs conversation lists and history from the
// message store, joined against booking data.
type ConversationService struct {
	messageRepo IMessageRepository
	bookingRepo IBookingRepository
	userRepo    IUserRepository
}

// NewConversationService creates a new ConversationService.
func NewConversationService(messageRepo IMessageRepository, bookingRepo IBookingRepository, userRepo IUserRepository) *ConversationService {
	return &ConversationService{
		messageRepo: messageRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
	}
}

// ListConversations returns the participant's conversation list. Counterpart
// candidates are the participants they share a completed booking with, so a
// chat can be opened from a booking even before the first message.
// Conversations sort newest-activity first; the sort is stable, so
// same-time rows keep their relative order.
func (s *ConversationService) ListConversations(ctx context.Context, participantID uuid.UUID) ([]*ConversationSummary, error) {
	counterparts, err := s.bookingRepo.CompletedCounterparts(participantID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(counterparts))
	for _, counterpartID := range counterparts {
		summary, err := s.summarize(ctx, participantID, counterpartID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime.After(summaries[j].LastMessageTime)
	})
	return summaries, nil
}

func (s *ConversationService) summarize(ctx context.Context, participantID, counterpartID uuid.UUID) (*ConversationSummary, error) {
	convID := conversation.ID(participantID.String(), counterpartID.String())

	last, err := s.messageRepo.LatestInConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	unread, err := s.messageRepo.CountUnread(ctx, participantID.String(), counterpartID.String())
	if err != nil {
		return nil, err
	}

	summary := &ConversationSummary{
		CounterpartID:  counterpartID,
		ConversationID: convID,
		LastMessage:    last,
		UnreadCount:    unread,
	}
	if last != nil {
		summary.LastMessageTime = last.Timestamp
	}

	if user, err := s.userRepo.GetUserByID(counterpartID); err != nil {
		return nil, err
	} else if user != nil {
		summary.CounterpartName = user.Name
		summary.CounterpartRole = user.Role
	}
	return summary, nil
}

// History returns one oldest-first page of the conversation between the
// participant and the counterpart, gated on a completed booking between
// them.
func (s *ConversationService) History(ctx context.Context, participantID, counterpartID uuid.UUID, limit, offset int64) (*ConversationHistory, error) {
	allowed, err := s.bookingRepo.HasCompletedBooking(participantID, counterpartID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrNoRelationship
	}

	convID := conversation.ID(participantID.String(), counterpartID.String())
	messages, err := s.messageRepo.ListByConversation(ctx, convID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ConversationHistory{ConversationID: convID, Messages: messages}, nil
}
