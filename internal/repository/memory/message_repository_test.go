package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
)

func TestAppend_Validation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	_, err := repo.Append(ctx, u1, u2, "   ")
	req.ErrorIs(err, domain.ErrEmptyBody)

	_, err = repo.Append(ctx, u1, u1, "hello me")
	req.ErrorIs(err, domain.ErrSelfMessage)

	msg, err := repo.Append(ctx, u1, u2, "  Hello  ")
	req.NoError(err)
	req.Equal("Hello", msg.Body)
	req.Equal(domain.StatusSent, msg.Status)
	req.Equal(conversation.ID(u1, u2), msg.ConversationID)
	req.False(msg.ID.IsZero())
}

func TestListByConversation_OldestFirstAndIdempotent(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	for _, body := range []string{"one", "two", "three"} {
		_, err := repo.Append(ctx, u1, u2, body)
		req.NoError(err)
	}

	convID := conversation.ID(u1, u2)
	first, err := repo.ListByConversation(ctx, convID, 100, 0)
	req.NoError(err)
	req.Len(first, 3)
	req.Equal("one", first[0].Body)
	req.Equal("three", first[2].Body)

	// No intervening writes: identical sequence in identical order.
	second, err := repo.ListByConversation(ctx, convID, 100, 0)
	req.NoError(err)
	req.Equal(first, second)

	page, err := repo.ListByConversation(ctx, convID, 1, 1)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("two", page[0].Body)
}

func TestUpdateStatus_ReceiverConstraintAndMonotonicity(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	msg, err := repo.Append(ctx, u1, u2, "hello")
	req.NoError(err)

	// The sender may not advance their own message.
	n, err := repo.UpdateStatus(ctx, []primitive.ObjectID{msg.ID}, domain.StatusRead, u1)
	req.NoError(err)
	req.Zero(n)

	n, err = repo.UpdateStatus(ctx, []primitive.ObjectID{msg.ID}, domain.StatusRead, u2)
	req.NoError(err)
	req.EqualValues(1, n)

	// Regressing read -> delivered is a silent no-op.
	n, err = repo.UpdateStatus(ctx, []primitive.ObjectID{msg.ID}, domain.StatusDelivered, u2)
	req.NoError(err)
	req.Zero(n)

	// Redundant read is a silent no-op as well.
	n, err = repo.UpdateStatus(ctx, []primitive.ObjectID{msg.ID}, domain.StatusRead, u2)
	req.NoError(err)
	req.Zero(n)

	listed, err := repo.ListByConversation(ctx, msg.ConversationID, 0, 0)
	req.NoError(err)
	req.Equal(domain.StatusRead, listed[0].Status)

	_, err = repo.UpdateStatus(ctx, []primitive.ObjectID{msg.ID}, "bogus", u2)
	req.ErrorIs(err, domain.ErrInvalidStatus)
}

func TestCountUnread(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2, u3 := uuid.NewString(), uuid.NewString(), uuid.NewString()

	m1, err := repo.Append(ctx, u1, u2, "from u1")
	req.NoError(err)
	_, err = repo.Append(ctx, u3, u2, "from u3")
	req.NoError(err)

	total, err := repo.CountUnread(ctx, u2, "")
	req.NoError(err)
	req.EqualValues(2, total)

	scoped, err := repo.CountUnread(ctx, u2, u1)
	req.NoError(err)
	req.EqualValues(1, scoped)

	// Delivered still counts as unread.
	_, err = repo.UpdateStatus(ctx, []primitive.ObjectID{m1.ID}, domain.StatusDelivered, u2)
	req.NoError(err)
	total, err = repo.CountUnread(ctx, u2, "")
	req.NoError(err)
	req.EqualValues(2, total)

	_, err = repo.UpdateStatus(ctx, []primitive.ObjectID{m1.ID}, domain.StatusRead, u2)
	req.NoError(err)
	scoped, err = repo.CountUnread(ctx, u2, u1)
	req.NoError(err)
	req.Zero(scoped)
}

func TestDistinctConversationIDsAndUndelivered(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2, u3 := uuid.NewString(), uuid.NewString(), uuid.NewString()

	_, err := repo.Append(ctx, u1, u2, "a")
	req.NoError(err)
	_, err = repo.Append(ctx, u2, u1, "b")
	req.NoError(err)
	_, err = repo.Append(ctx, u3, u1, "c")
	req.NoError(err)

	ids, err := repo.DistinctConversationIDs(ctx, u1)
	req.NoError(err)
	req.ElementsMatch([]string{conversation.ID(u1, u2), conversation.ID(u1, u3)}, ids)

	pending, err := repo.ListUndelivered(ctx, u1)
	req.NoError(err)
	req.Len(pending, 2)
}

func TestLatestInConversation(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository()
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	latest, err := repo.LatestInConversation(ctx, conversation.ID(u1, u2))
	req.NoError(err)
	req.Nil(latest)

	_, err = repo.Append(ctx, u1, u2, "first")
	req.NoError(err)
	_, err = repo.Append(ctx, u2, u1, "second")
	req.NoError(err)

	latest, err = repo.LatestInConversation(ctx, conversation.ID(u1, u2))
	req.NoError(err)
	req.Equal("second", latest.Body)
}
