// Package queue provides the bounded, thread-safe FIFO used for the per-device
// priority queues of the command engine.
package queue

import (
	"sync"

	"github.com/benchkit/go-devq/internal/util"
)

// Bounded is a fixed-capacity, thread-safe FIFO queue.
//
// Producers admit items with TryEnqueue or TryEnqueueBatch, both of which fail
// instead of blocking when the capacity would be exceeded. The consumer drains
// items one at a time with TryDequeue. Cancellation sweeps empty the whole
// queue with Drain and put survivors back with Requeue.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// NewBounded creates a Bounded queue with the given capacity.
// A non-positive capacity is treated as 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// TryEnqueue adds an item to the tail of the queue.
// It returns false when the queue is at capacity.
func (q *Bounded[T]) TryEnqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, item)

	return true
}

// TryEnqueueBatch adds all items to the tail of the queue as one atomic unit,
// holding the queue lock across the whole batch so no other producer can
// interleave between them. It is all-or-nothing: when the remaining capacity
// cannot hold every item, nothing is enqueued and false is returned.
func (q *Bounded[T]) TryEnqueueBatch(items []T) bool {
	if len(items) == 0 {
		return true
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items)+len(items) > q.capacity {
		return false
	}
	q.items = append(q.items, items...)

	return true
}

// TryDequeue removes and returns the item at the head of the queue.
// The second return value is false when the queue is empty.
func (q *Bounded[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	item := q.items[0]
	var zero T
	q.items[0] = zero // release the reference
	q.items = q.items[1:]

	return item, true
}

// Drain removes and returns every queued item in FIFO order, leaving the
// queue empty. From other goroutines' perspective the queue is briefly empty
// until the sweep calls Requeue with the survivors.
func (q *Bounded[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	drained := util.CloneSlice(q.items, 0)
	q.items = q.items[:0]

	return drained
}

// Requeue puts previously drained items back at the head of the queue, ahead
// of anything enqueued since the drain. The items were admitted against the
// capacity before the drain, so Requeue never rejects them; the queue may
// transiently exceed its capacity if producers raced the sweep.
func (q *Bounded[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
}

// Len returns the number of queued items.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *Bounded[T]) IsEmpty() bool {
	return q.Len() == 0
}
