// Package queue buffers completed matches between ingestion and the workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a match without blocking. It returns ErrFull when the
	// buffer is exhausted and ErrClosed after Close.
	Enqueue(ctx context.Context, m model.Match) error

	// Dequeue returns the channel matches are delivered on. It is closed by Close
	// once drained.
	Dequeue() <-chan model.Match

	// Len returns the current number of queued matches.
	Len() int

	// Cap returns the queue capacity.
	Cap() int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	matches  chan model.Match
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.matches = make(chan model.Match, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a match to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, m model.Match) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("enqueue %s: %w", m.ID, err)
	}

	select {
	case q.matches <- m:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.matches))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the delivery channel shared by all consumers.
func (q *InMemoryQueue) Dequeue() <-chan model.Match {
	return q.matches
}

// Len returns the current number of queued matches.
func (q *InMemoryQueue) Len() int {
	size := len(q.matches)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops accepting matches. Buffered matches are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.matches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
