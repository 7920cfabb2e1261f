package hub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"servly-chat-server/internal/conversation"
	"servly-chat-server/internal/domain"
	"servly-chat-server/internal/registry"
	"servly-chat-server/internal/repository/memory"
	"servly-chat-server/internal/service"
)

// Handlers are invoked directly instead of through Run, so every side
// effect is synchronous and the outbound buffers can be inspected
// immediately.

func newTestHub(repo service.IMessageRepository) (*Hub, *registry.Registry) {
	reg := registry.New()
	return NewHub(reg, repo, zap.NewNop()), reg
}

func newTestClient(h *Hub) *Client {
	return &Client{
		UserID: uuid.New(),
		Name:   "tester",
		Hub:    h,
		Send:   make(chan []byte, 32),
	}
}

func connect(h *Hub, c *Client) {
	h.handleConnect(c)
}

func nextEvent(t *testing.T, c *Client) domain.WebSocketMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var evt domain.WebSocketMessage
		require.NoError(t, json.Unmarshal(raw, &evt))
		return evt
	default:
		t.Fatal("expected an event, buffer is empty")
		return domain.WebSocketMessage{}
	}
}

func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected event: %s", raw)
	default:
	}
}

func decodePayload(t *testing.T, evt domain.WebSocketMessage, out interface{}) {
	t.Helper()
	require.NoError(t, parsePayload(evt.Payload, out))
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func sendEvent(h *Hub, c *Client, eventType string, payload interface{}) {
	h.handleMessage(&ClientRequest{
		Client:  c,
		Message: domain.WebSocketMessage{Type: eventType, Payload: payload},
	})
}

func TestConnect_AutoSubscribesAndAnnouncesPresence(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, reg := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)

	// Prior history between the two participants.
	msg, err := repo.Append(context.Background(), u1.participantID(), u2.participantID(), "Hello")
	req.NoError(err)

	connect(h, u1)
	req.True(reg.IsOnline(u1.participantID()))
	req.True(h.room(msg.ConversationID).hasClient(u1))
	drain(u1)

	connect(h, u2)
	req.True(h.room(msg.ConversationID).hasClient(u2))

	// u1 sees u2 come online, then the pending message upgrade.
	presence := nextEvent(t, u1)
	req.Equal(domain.EventPresence, presence.Type)
	var presencePayload domain.PresencePayload
	decodePayload(t, presence, &presencePayload)
	req.Equal(u2.participantID(), presencePayload.ParticipantID)
	req.Equal(domain.PresenceOnline, presencePayload.Status)

	delivered := nextEvent(t, u1)
	req.Equal(domain.EventDelivered, delivered.Type)
	var deliveredPayload domain.DeliveredPayload
	decodePayload(t, delivered, &deliveredPayload)
	req.Equal([]string{msg.ID.Hex()}, deliveredPayload.MessageIDs)

	// The connecting participant is not notified about themselves.
	requireNoEvent(t, u2)

	listed, err := repo.ListByConversation(context.Background(), msg.ConversationID, 0, 0)
	req.NoError(err)
	req.Equal(domain.StatusDelivered, listed[0].Status)
}

func TestSend_PersistsBroadcastsAndUpgradesToDelivered(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)
	connect(h, u1)
	connect(h, u2)
	drain(u1)
	drain(u2)

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: u2.participantID(), Body: "Hello"})

	convID := conversation.ID(u1.participantID(), u2.participantID())

	// Sender sees the broadcast, then the delivery notification.
	newMsg := nextEvent(t, u1)
	req.Equal(domain.EventNewMessage, newMsg.Type)
	var newMsgPayload domain.NewMessagePayload
	decodePayload(t, newMsg, &newMsgPayload)
	req.Equal(convID, newMsgPayload.ConversationID)
	req.Equal("Hello", newMsgPayload.Message.Body)

	deliveredEvt := nextEvent(t, u1)
	req.Equal(domain.EventDelivered, deliveredEvt.Type)

	// Receiver had no room yet: the message is pushed directly.
	receiverEvt := nextEvent(t, u2)
	req.Equal(domain.EventNewMessage, receiverEvt.Type)

	listed, err := repo.ListByConversation(context.Background(), convID, 0, 0)
	req.NoError(err)
	req.Len(listed, 1)
	req.Equal(domain.StatusDelivered, listed[0].Status)

	unread, err := repo.CountUnread(context.Background(), u2.participantID(), "")
	req.NoError(err)
	req.EqualValues(1, unread) // delivered is still unread
}

func TestSend_OfflineReceiverStaysSent(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	connect(h, u1)
	drain(u1)

	receiverID := uuid.NewString()
	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: receiverID, Body: "anyone home?"})

	evt := nextEvent(t, u1)
	req.Equal(domain.EventNewMessage, evt.Type)
	requireNoEvent(t, u1) // no delivery notification

	convID := conversation.ID(u1.participantID(), receiverID)
	listed, err := repo.ListByConversation(context.Background(), convID, 0, 0)
	req.NoError(err)
	req.Equal(domain.StatusSent, listed[0].Status)
}

func TestSend_ValidationFailuresAreScoped(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	connect(h, u1)
	drain(u1)

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: uuid.NewString(), Body: "   "})
	evt := nextEvent(t, u1)
	req.Equal(domain.EventError, evt.Type)

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: u1.participantID(), Body: "note to self"})
	evt = nextEvent(t, u1)
	req.Equal(domain.EventError, evt.Type)

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{Body: "no recipient"})
	evt = nextEvent(t, u1)
	req.Equal(domain.EventError, evt.Type)

	// Connection stays registered through all of it.
	req.True(h.connections[u1])
}

type failingAppendRepo struct {
	service.IMessageRepository
}

func (f *failingAppendRepo) Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	return nil, errors.New("store unavailable")
}

func TestSend_StoreFailureReportedToSenderOnly(t *testing.T) {
	req := require.New(t)
	repo := &failingAppendRepo{IMessageRepository: memory.NewMessageRepository()}
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)
	connect(h, u1)
	connect(h, u2)
	drain(u1)
	drain(u2)

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: u2.participantID(), Body: "Hello"})

	evt := nextEvent(t, u1)
	req.Equal(domain.EventError, evt.Type)
	requireNoEvent(t, u2)
	req.True(h.connections[u1])
}

func TestRead_AdvancesStatusAndNotifiesOthers(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)

	msg, err := repo.Append(context.Background(), u1.participantID(), u2.participantID(), "Hello")
	req.NoError(err)

	connect(h, u1)
	connect(h, u2) // upgrades the pending message to delivered
	drain(u1)
	drain(u2)

	sendEvent(h, u2, domain.EventRead, domain.ReadPayload{
		ConversationID: msg.ConversationID,
		MessageIDs:     []string{msg.ID.Hex()},
	})

	// The reader gets no receipt back; the sender does.
	requireNoEvent(t, u2)
	ack := nextEvent(t, u1)
	req.Equal(domain.EventReadAck, ack.Type)
	var ackPayload domain.ReadAckPayload
	decodePayload(t, ack, &ackPayload)
	req.Equal([]string{msg.ID.Hex()}, ackPayload.MessageIDs)

	unread, err := repo.CountUnread(context.Background(), u2.participantID(), "")
	req.NoError(err)
	req.Zero(unread)

	// Redundant read matches nothing and broadcasts nothing.
	sendEvent(h, u2, domain.EventRead, domain.ReadPayload{
		ConversationID: msg.ConversationID,
		MessageIDs:     []string{msg.ID.Hex()},
	})
	requireNoEvent(t, u1)

	// The sender cannot advance their own message.
	sendEvent(h, u1, domain.EventRead, domain.ReadPayload{
		ConversationID: msg.ConversationID,
		MessageIDs:     []string{msg.ID.Hex()},
	})
	requireNoEvent(t, u2)
}

func TestJoin_FirstContactReceivesRoomBroadcast(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)
	connect(h, u1)
	connect(h, u2)
	drain(u1)
	drain(u2)

	convID := conversation.ID(u1.participantID(), u2.participantID())
	sendEvent(h, u2, domain.EventJoin, domain.JoinPayload{ConversationID: convID})
	req.True(h.room(convID).hasClient(u2))

	sendEvent(h, u1, domain.EventSend, domain.SendPayload{To: u2.participantID(), Body: "Hi"})

	evt := nextEvent(t, u2)
	req.Equal(domain.EventNewMessage, evt.Type)
	requireNoEvent(t, u2) // subscribed: no duplicate direct push
}

func TestTyping_EphemeralBroadcast(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)
	connect(h, u1)
	connect(h, u2)

	convID := conversation.ID(u1.participantID(), u2.participantID())
	sendEvent(h, u1, domain.EventJoin, domain.JoinPayload{ConversationID: convID})
	sendEvent(h, u2, domain.EventJoin, domain.JoinPayload{ConversationID: convID})
	drain(u1)
	drain(u2)

	sendEvent(h, u1, domain.EventTyping, domain.TypingPayload{To: u2.participantID(), IsTyping: true})

	evt := nextEvent(t, u2)
	req.Equal(domain.EventTyping, evt.Type)
	var typingPayload domain.TypingPayload
	decodePayload(t, evt, &typingPayload)
	req.Equal(u1.participantID(), typingPayload.ParticipantID)
	req.True(typingPayload.IsTyping)
	requireNoEvent(t, u1)

	// Nothing persisted.
	listed, err := repo.ListByConversation(context.Background(), convID, 0, 0)
	req.NoError(err)
	req.Empty(listed)
}

func TestDisconnect_AnnouncesOfflineToKnownConversations(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, reg := newTestHub(repo)

	u1 := newTestClient(h)
	u2 := newTestClient(h)
	_, err := repo.Append(context.Background(), u1.participantID(), u2.participantID(), "Hello")
	req.NoError(err)

	connect(h, u1)
	connect(h, u2)
	drain(u1)
	drain(u2)

	h.handleDisconnect(u2)

	req.False(reg.IsOnline(u2.participantID()))
	evt := nextEvent(t, u1)
	req.Equal(domain.EventPresence, evt.Type)
	var presencePayload domain.PresencePayload
	decodePayload(t, evt, &presencePayload)
	req.Equal(u2.participantID(), presencePayload.ParticipantID)
	req.Equal(domain.PresenceOffline, presencePayload.Status)

	// A second disconnect for the same client is a no-op.
	h.handleDisconnect(u2)
	requireNoEvent(t, u1)
}

func TestConnect_SecondConnectionDisplacesFirst(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, reg := newTestHub(repo)

	first := newTestClient(h)
	second := newTestClient(h)
	second.UserID = first.UserID

	connect(h, first)
	drain(first)
	connect(h, second)

	evt := nextEvent(t, first)
	req.Equal(domain.EventError, evt.Type)
	req.False(h.connections[first])
	req.True(h.connections[second])

	resolved, ok := reg.Resolve(first.participantID())
	req.True(ok)
	req.Same(second, resolved.(*Client))

	// The displaced connection's late unregister must not evict the new one.
	h.handleDisconnect(first)
	req.True(reg.IsOnline(second.participantID()))
}

func TestUnknownEventType_Rejected(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1 := newTestClient(h)
	connect(h, u1)
	drain(u1)

	sendEvent(h, u1, "warp", nil)
	evt := nextEvent(t, u1)
	req.Equal(domain.EventError, evt.Type)
}

func TestPublish_HTTPFallbackDeliversLikeSocketSend(t *testing.T) {
	req := require.New(t)
	repo := memory.NewMessageRepository()
	h, _ := newTestHub(repo)

	u1ID := uuid.NewString()
	receiver := newTestClient(h)
	connect(h, receiver)
	drain(receiver)

	msg, err := repo.Append(context.Background(), u1ID, receiver.participantID(), "via HTTP")
	req.NoError(err)

	h.deliverPersisted(msg, nil)

	evt := nextEvent(t, receiver)
	req.Equal(domain.EventNewMessage, evt.Type)

	listed, err := repo.ListByConversation(context.Background(), msg.ConversationID, 0, 0)
	req.NoError(err)
	req.Equal(domain.StatusDelivered, listed[0].Status)
}
