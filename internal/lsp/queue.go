package lsp

import "sync"

// Queue is an unbounded FIFO for handing messages between exactly one
// producer and one consumer goroutine. Push never blocks, which is what
// keeps the editor's input loop free of protocol stalls.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// signal carries at most one token; Push tops it up, Pop drains it.
	signal chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends an item. It never blocks.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryPop removes the oldest item without blocking. The second return is
// false when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Pop removes the oldest item, blocking until one is available or stop
// is closed. The second return is false only on stop.
func (q *Queue[T]) Pop(stop <-chan struct{}) (T, bool) {
	for {
		if item, ok := q.TryPop(); ok {
			// Re-arm the signal if items remain so a queued burst does
			// not strand the next Pop.
			q.mu.Lock()
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return item, true
		}

		select {
		case <-q.signal:
		case <-stop:
			var zero T
			return zero, false
		}
	}
}

// Len reports the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}
