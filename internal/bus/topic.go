// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bus provides typed in-process broadcast topics with independent
// subscriber cursors. It is not durable; delivery is fan-out to whoever is
// subscribed at publish time.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/ManuGH/uprightd/internal/log"
	"github.com/ManuGH/uprightd/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// Topic is an in-memory broadcast channel for a single event type. A
// subscriber whose buffer is full misses the event rather than stalling the
// publisher. Late subscribers only see events published after they subscribe;
// there is no replay.
type Topic[T any] struct {
	name   string
	mu     sync.Mutex
	subs   []*Subscription[T]
	closed bool
}

// NewTopic creates a topic. The name labels drop metrics and logs.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Publish fans v out to all current subscribers without blocking. Events are
// dropped per-subscriber when a buffer is full, so one slow consumer cannot
// hold up the rest.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for _, s := range t.subs {
		select {
		case s.ch <- v:
		default:
			metrics.IncBusDrop(t.name)
			count := dropCount.Add(1)
			if count%dropLogEvery == 0 {
				log.L().Warn().
					Str("topic", t.name).
					Uint64("dropped", count).
					Msg("bus subscriber buffer full, event dropped")
			}
		}
	}
}

// Subscribe registers a new subscriber with the default buffer.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	return t.SubscribeBuffer(DefaultBuffer)
}

// SubscribeBuffer registers a new subscriber with a chosen buffer capacity.
// Subscribing to a closed topic yields an already-closed subscription.
func (t *Topic[T]) SubscribeBuffer(n int) *Subscription[T] {
	if n < 1 {
		n = 1
	}
	s := &Subscription[T]{t: t, ch: make(chan T, n)}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		s.closed = true
		close(s.ch)
		return s
	}
	t.subs = append(t.subs, s)
	return s
}

// Close closes every subscriber channel and rejects further publishes.
// Idempotent.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, s := range t.subs {
		if !s.closed {
			s.closed = true
			close(s.ch)
		}
	}
	t.subs = nil
}

// Subscribers reports the number of live subscriptions.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Subscription is one receiver attached to a Topic.
type Subscription[T any] struct {
	t      *Topic[T]
	ch     chan T
	closed bool // guarded by t.mu
}

// C returns the receive channel. It is closed when the subscription or its
// topic is closed.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close detaches the subscription and closes its channel. Safe to call more
// than once and safe to race with Publish.
func (s *Subscription[T]) Close() {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	lst := s.t.subs
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	s.t.subs = out
	close(s.ch)
}
