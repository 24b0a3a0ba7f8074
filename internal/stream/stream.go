// Package stream provides push-based, cancellable value streams.
//
// A Subscription conflates: when the consumer falls behind, older undelivered
// values are replaced by the newest one, so a reader always observes the
// latest state and producers never block.
package stream

import "sync"

// Subscription is a consumer handle on a stream of values.
// Close detaches it from its producer and closes the channel returned by C.
type Subscription[T any] struct {
	mu      sync.Mutex
	ch      chan T
	closed  bool
	onClose func()
}

// NewSubscription creates a subscription. onClose, if non-nil, runs once
// when the subscription is closed and must release the producer side
// (kill a live query, cancel a goroutine).
func NewSubscription[T any](onClose func()) *Subscription[T] {
	return &Subscription[T]{
		ch:      make(chan T, 1),
		onClose: onClose,
	}
}

// C returns the channel values are delivered on. It is closed after Close.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Offer delivers v, replacing any value the consumer has not read yet.
// It reports false if the subscription is already closed.
func (s *Subscription[T]) Offer(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
	}
	// Buffer full: drop the stale value.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
	return true
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	onClose := s.onClose
	s.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// Closed reports whether Close has been called.
func (s *Subscription[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Broadcaster fans values out to any number of subscriptions.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new subscription. If the broadcaster is closed the
// returned subscription is already closed.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	var sub *Subscription[T]
	sub = NewSubscription[T](func() { b.remove(sub) })

	b.mu.Lock()
	closed := b.closed
	if !closed {
		b.subs[sub] = struct{}{}
	}
	b.mu.Unlock()

	if closed {
		sub.Close()
	}
	return sub
}

// Publish offers v to every live subscription. It never blocks.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.Offer(v)
	}
}

// Len returns the number of live subscriptions.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription and rejects new ones.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*Subscription[T], 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*Subscription[T]]struct{})
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (b *Broadcaster[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Map returns a subscription that forwards fn(v) for every value of src.
// Closing the returned subscription closes src.
func Map[T, U any](src *Subscription[T], fn func(T) U) *Subscription[U] {
	out := NewSubscription[U](src.Close)
	go func() {
		defer out.Close()
		for v := range src.C() {
			if !out.Offer(fn(v)) {
				return
			}
		}
	}()
	return out
}
