// Package notify fans change notifications out to subscribers.
package notify

import (
	"context"
	"sync"
)

const defaultBuffer = 32

// Publisher accepts notifications.
type Publisher[T any] interface {
	Publish(v T)
}

// Hub delivers each published value to every current subscriber. Publish
// never blocks: a subscriber whose buffer is full misses the value.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[int]chan T
	next   int
	buffer int
	closed bool

	done     chan struct{}
	watchers sync.WaitGroup
}

// Option configures a Hub.
type Option func(*hubConfig)

type hubConfig struct {
	buffer int
}

// WithBuffer sets the per-subscriber channel buffer.
func WithBuffer(n int) Option {
	return func(c *hubConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// NewHub creates an empty hub.
func NewHub[T any](opts ...Option) *Hub[T] {
	cfg := hubConfig{buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Hub[T]{subs: make(map[int]chan T), buffer: cfg.buffer, done: make(chan struct{})}
}

// Subscribe returns a channel receiving values until ctx is done or the hub
// is closed, after which the channel is closed.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.watchers.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.watchers.Done()
		select {
		case <-ctx.Done():
			h.unsubscribe(id)
		case <-h.done:
		}
	}()
	return ch
}

func (h *Hub[T]) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber with buffer space.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription and waits for their watchers to exit.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()
	h.watchers.Wait()
}

// Func adapts a plain function to Publisher.
type Func[T any] func(T)

// Publish calls f(v).
func (f Func[T]) Publish(v T) { f(v) }

// Discard is a Publisher that drops everything.
type Discard[T any] struct{}

// Publish does nothing.
func (Discard[T]) Publish(T) {}
