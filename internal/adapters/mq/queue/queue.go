// Package queue provides a bounded in-memory queue for background jobs.
//
// Enqueue never blocks: a full or closed queue rejects the item and the
// caller decides what dropping it means.
package queue

import (
	"context"
	"sync"

	"github.com/okian/faceattr/pkg/metrics"
)

const defaultCapacity = 256

// Drop reasons, also used as metric labels.
const (
	DropFull      = "queue_full"
	DropClosed    = "closed"
	DropCancelled = "context_cancelled"
)

// InMemoryQueue is a bounded FIFO backed by a buffered channel.
type InMemoryQueue[T any] struct {
	name     string
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue. The name labels its metrics.
func NewInMemoryQueue[T any](name string, opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		name:     name,
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}
	metrics.UpdateQueueSize(name, 0)
	return q
}

// Enqueue adds item and reports whether it was accepted.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop(q.name, DropClosed)
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueDrop(q.name, DropCancelled)
		return false
	}

	select {
	case q.items <- item:
		metrics.UpdateQueueSize(q.name, len(q.items))
		return true
	default:
		metrics.RecordQueueDrop(q.name, DropFull)
		return false
	}
}

// Dequeue returns the receive side of the queue. It is closed, after the
// remaining items are drained, once Close is called.
func (q *InMemoryQueue[T]) Dequeue() <-chan T {
	return q.items
}

// Len returns the number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	n := len(q.items)
	metrics.UpdateQueueSize(q.name, n)
	return n
}

// Cap returns the queue capacity.
func (q *InMemoryQueue[T]) Cap() int { return q.capacity }

// Close stops accepting items. Already queued items stay readable.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
