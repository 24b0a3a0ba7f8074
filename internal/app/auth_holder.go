package app

import (
	"sync"

	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/stream"
)

// AuthStateSource is the read side of the authentication state.
type AuthStateSource interface {
	Current() auth.State
}

// AuthStateHolder is the process-wide current authentication state.
// AccountServiceImpl is its only writer.
type AuthStateHolder struct {
	mu          sync.Mutex
	current     auth.State
	subscribers *stream.Broadcaster[auth.State]
}

// NewAuthStateHolder creates a holder starting Unauthenticated.
func NewAuthStateHolder() *AuthStateHolder {
	return &AuthStateHolder{
		current:     auth.Unauthenticated{},
		subscribers: stream.NewBroadcaster[auth.State](),
	}
}

// Current returns the state at the time of the call.
func (h *AuthStateHolder) Current() auth.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Set replaces the state and notifies subscribers. A nil state is stored as
// Unauthenticated.
func (h *AuthStateHolder) Set(s auth.State) {
	if s == nil {
		s = auth.Unauthenticated{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = s
	h.subscribers.Publish(s)
}

// Subscribe returns a subscription that yields the current state first and
// then every later one. Slow readers only see the latest state.
func (h *AuthStateHolder) Subscribe() *stream.Subscription[auth.State] {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := h.subscribers.Subscribe()
	sub.Offer(h.current)
	return sub
}

// Close ends every subscription.
func (h *AuthStateHolder) Close() {
	h.subscribers.Close()
}
