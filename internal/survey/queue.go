package survey

import "sync"

// authQueue is a thread-safe FIFO of authentication observations.
//
// Any number of observers enqueue; only the Run loop dequeues. The signal
// channel (buffered, size 1) lets Run wait with context awareness.
type authQueue struct {
	mu     sync.Mutex
	items  []bool
	closed bool
	signal chan struct{}
}

func newAuthQueue() *authQueue {
	return &authQueue{
		items:  make([]bool, 0, 8),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an observation. Returns false if the queue is closed.
func (q *authQueue) Enqueue(isAuthenticated bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, isAuthenticated)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front observation without blocking.
func (q *authQueue) TryDequeue() (bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return false, false
	}
	v := q.items[0]
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return v, true
}

// Wait returns a channel that signals when observations may be available.
// It is closed when the queue is closed.
func (q *authQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued observations.
func (q *authQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting observations and wakes the waiter.
func (q *authQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
