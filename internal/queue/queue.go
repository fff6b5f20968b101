package queue

import (
	"sync"
)

// Queue is a goroutine-safe FIFO. Producers may run anywhere; the consumer
// takes whole batches with Drain so it never holds the lock while working.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// NewBounded creates a queue that refuses pushes beyond limit items.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Push appends item. It returns false if the queue is bounded and full.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		return false
	}
	q.items = append(q.items, item)
	return true
}

// Drain removes every queued item and returns them in arrival order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]T, 0, cap(out))
	return out
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty returns true if nothing is queued.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}
