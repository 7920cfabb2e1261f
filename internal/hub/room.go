package hub

import (
	"sync"

	"go.uber.org/zap"
)

// conversationRoom is the live subscriber set of one conversation. The room
// key is always the derived conversation id.
type conversationRoom struct {
	id      string
	clients map[*Client]bool
	mu      sync.RWMutex
	hub     *Hub
}

func newConversationRoom(id string, hub *Hub) *conversationRoom {
	return &conversationRoom{
		id:      id,
		clients: make(map[*Client]bool),
		hub:     hub,
	}
}

// addClient subscribes a client to the room.
func (r *conversationRoom) addClient(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client] = true
}

// removeClient unsubscribes a client from the room.
func (r *conversationRoom) removeClient(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, client)
}

// hasClient checks if a client is subscribed to the room.
func (r *conversationRoom) hasClient(client *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[client]
}

func (r *conversationRoom) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients) == 0
}

// broadcast sends a message to all subscribers, except exclude when it is
// non-nil. A subscriber with a full buffer misses the event; it catches up
// from the message store on its next history fetch.
func (r *conversationRoom) broadcast(message []byte, exclude *Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for client := range r.clients {
		if client == exclude {
			continue
		}
		if !client.Enqueue(message) {
			r.hub.logger.Warn("dropped broadcast for slow subscriber",
				zap.String("conversation", r.id),
				zap.String("participant", client.participantID()))
		}
	}
}
