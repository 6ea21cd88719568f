package connectivity

import (
	"testing"
	"time"
)

func entry(id string, p Priority) *queuedRequest {
	return &queuedRequest{
		id:         id,
		priority:   p,
		enqueuedAt: time.Now(),
		done:       make(chan error, 1),
	}
}

func TestQueuePriorityOrdering(t *testing.T) {
	q := newRequestQueue()
	q.enqueue(entry("low", PriorityLow))
	q.enqueue(entry("high", PriorityHigh))
	q.enqueue(entry("normal", PriorityNormal))

	batch := q.dequeueBatch(3)
	if len(batch) != 3 {
		t.Fatalf("expected 3 items, got %d", len(batch))
	}

	want := []string{"high", "normal", "low"}
	for i, w := range want {
		if batch[i].id != w {
			t.Errorf("position %d: expected %q, got %q", i, w, batch[i].id)
		}
	}
}

func TestQueueFIFOWithinTier(t *testing.T) {
	q := newRequestQueue()
	q.enqueue(entry("first", PriorityNormal))
	q.enqueue(entry("second", PriorityNormal))
	q.enqueue(entry("urgent", PriorityHigh))
	q.enqueue(entry("third", PriorityNormal))

	batch := q.dequeueBatch(4)
	want := []string{"urgent", "first", "second", "third"}
	for i, w := range want {
		if batch[i].id != w {
			t.Errorf("position %d: expected %q, got %q", i, w, batch[i].id)
		}
	}
}

func TestQueueDequeueBatchBounds(t *testing.T) {
	q := newRequestQueue()
	if batch := q.dequeueBatch(5); batch != nil {
		t.Errorf("expected nil batch from empty queue, got %d items", len(batch))
	}

	q.enqueue(entry("a", PriorityNormal))
	q.enqueue(entry("b", PriorityNormal))

	batch := q.dequeueBatch(5)
	if len(batch) != 2 {
		t.Errorf("expected 2 items, got %d", len(batch))
	}
	if q.size() != 0 {
		t.Errorf("expected empty queue, got size %d", q.size())
	}
}

func TestQueueClear(t *testing.T) {
	q := newRequestQueue()
	q.enqueue(entry("a", PriorityNormal))
	q.enqueue(entry("b", PriorityHigh))

	cleared := q.clear()
	if len(cleared) != 2 {
		t.Errorf("expected 2 cleared items, got %d", len(cleared))
	}
	if q.size() != 0 {
		t.Errorf("expected empty queue after clear, got size %d", q.size())
	}
}
