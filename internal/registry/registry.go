// Package registry tracks which participants currently hold a live realtime
// channel. The registry is process-wide state: in a multi-process deployment
// each process only sees its own connections.
package registry

import "sync"

// Channel is the send side of a live connection. Enqueue reports false when
// the channel's buffer is full or closed and the message was dropped.
type Channel interface {
	Enqueue(message []byte) bool
}

// Registry maps participant ids to their active channel. At most one channel
// per participant: a new registration overwrites the previous one
// (last-writer-wins; multi-device fan-out is not supported).
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register maps participantID to ch, overwriting any prior registration.
func (r *Registry) Register(participantID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[participantID] = ch
}

// Unregister removes the mapping for participantID, but only if it still
// points at ch. A stale disconnect racing a reconnect must not tear down the
// newer registration. Passing a nil ch removes the mapping unconditionally.
// No-op if the participant is not registered.
func (r *Registry) Unregister(participantID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.channels[participantID]
	if !ok {
		return
	}
	if ch == nil || current == ch {
		delete(r.channels, participantID)
	}
}

// Resolve returns the live channel for participantID, if any.
func (r *Registry) Resolve(participantID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[participantID]
	return ch, ok
}

// IsOnline reports whether participantID has a live channel.
func (r *Registry) IsOnline(participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[participantID]
	return ok
}
