package connectivity

import (
	"context"
	"sync"
	"time"
)

// Priority orders queued requests. Higher priorities drain first; FIFO
// applies within a tier.
type Priority int

const (
	// PriorityLow is for deferrable work (prefetch, analytics).
	PriorityLow Priority = iota
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh is for user-intent work that must not be lost
	// (finished routes, territory claims).
	PriorityHigh
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// Operation is a unit of work the manager can run now or replay later.
// The context carries the condition-adapted deadline.
type Operation func(ctx context.Context) error

// queuedRequest is one deferred operation awaiting connectivity.
type queuedRequest struct {
	id         string
	op         Operation
	priority   Priority
	timeout    time.Duration
	adapt      bool
	enqueuedAt time.Time
	retryCount int
	maxRetries int
	lastErr    error
	// done receives the terminal outcome exactly once: nil on success,
	// the last error when the retry budget is spent, ErrQueueCleared on
	// explicit clear. Buffered so drain never blocks on an abandoned
	// caller.
	done chan error
}

// requestQueue is the priority-ordered offline queue. All mutation goes
// through its mutex; the manager's processing flag keeps drain passes
// from overlapping.
type requestQueue struct {
	mu    sync.Mutex
	items []*queuedRequest
}

func newRequestQueue() *requestQueue {
	return &requestQueue{}
}

// enqueue inserts ordered by priority, FIFO within a tier.
func (q *requestQueue) enqueue(r *queuedRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := len(q.items)
	for i, item := range q.items {
		if item.priority < r.priority {
			idx = i
			break
		}
	}

	q.items = append(q.items, nil)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = r
}

// dequeueBatch removes and returns up to n requests from the front.
func (q *requestQueue) dequeueBatch(n int) []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.items) {
		n = len(q.items)
	}
	if n <= 0 {
		return nil
	}

	batch := make([]*queuedRequest, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch
}

// size returns the number of queued requests.
func (q *requestQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// clear removes and returns all queued requests.
func (q *requestQueue) clear() []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// snapshot returns a copy of the queue for stats computation.
func (q *requestQueue) snapshot() []*queuedRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]*queuedRequest, len(q.items))
	copy(items, q.items)
	return items
}
