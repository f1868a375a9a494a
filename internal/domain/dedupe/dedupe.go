// Package dedupe tracks recently seen match ids so redelivered events are applied once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen ids to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed submission can be retried.
	Unrecord(ctx context.Context, id string)

	// Reset forgets every id.
	Reset(ctx context.Context)

	Size() int64
}

// inMemoryDeduper keeps ids in a ring of fixed capacity; the oldest id is
// evicted when the ring is full. With maxSize <= 0 it never evicts.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> ring slot, -1 when unbounded
	ring    []slot
	next    int
	maxSize int
}

type slot struct {
	id   string
	used bool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.init()
	return d
}

func (d *inMemoryDeduper) init() {
	d.seen = make(map[string]int)
	d.next = 0
	d.ring = nil
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.ring == nil {
		d.seen[id] = -1
		return false
	}

	if old := d.ring[d.next]; old.used {
		delete(d.seen, old.id)
	}
	d.ring[d.next] = slot{id: id, used: true}
	d.seen[id] = d.next
	d.next = (d.next + 1) % len(d.ring)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if i >= 0 {
		d.ring[i] = slot{}
	}
}

func (d *inMemoryDeduper) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.init()
}

// Size returns the current number of recorded ids.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
