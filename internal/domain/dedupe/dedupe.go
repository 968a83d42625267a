// Package dedupe tracks collaborator event ids so each event is applied at
// most once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not. The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a rejected event can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// ringDeduper keeps at most maxSize ids in a ring. When the ring wraps the
// oldest slot is overwritten and its id forgotten. maxSize <= 0 disables
// eviction.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int // id -> ring slot, -1 when unbounded
	ring    []string
	used    []bool
	next    int
}

// NewInMemoryDeduper creates a deduper. The default keeps 50,000 ids.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
		d.used = make([]bool, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	slot := d.next
	if d.used[slot] {
		delete(d.seen, d.ring[slot])
	}
	d.ring[slot] = id
	d.used[slot] = true
	d.seen[id] = slot
	d.next = (slot + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if slot >= 0 {
		d.ring[slot] = ""
		d.used[slot] = false
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
