package audit

import (
	"context"
	"sync"
)

// DefaultQueueCapacity bounds the queue when no explicit capacity is set.
const DefaultQueueCapacity = 1000

// Queue is a bounded, thread-safe hand-off buffer between many producing
// request goroutines and the single drain worker. Capacity is fixed at
// construction; a full queue signals backpressure by rejecting the enqueue
// rather than blocking or failing the caller's request.
type Queue struct {
	mu       sync.Mutex
	notEmpty chan struct{}

	events   []Event
	head     int // next read position
	count    int
	capacity int

	dropped uint64
}

// NewQueue creates a queue holding at most capacity events. Non-positive
// capacities fall back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		events:   make([]Event, capacity),
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
	}
}

// TryEnqueue attempts to add an event without blocking. It returns false when
// the queue is full; the caller logs the drop and continues, so audit
// backpressure never surfaces to the request that triggered the event.
func (q *Queue) TryEnqueue(event Event) bool {
	q.mu.Lock()
	if q.count >= q.capacity {
		q.dropped++
		q.mu.Unlock()
		return false
	}
	q.events[(q.head+q.count)%q.capacity] = event
	q.count++
	q.mu.Unlock()

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
	return true
}

// DequeueBatch removes up to max events in FIFO order. When the queue is
// empty it suspends until an event arrives or ctx is done, returning nil in
// the latter case. It is intended for a single consumer.
func (q *Queue) DequeueBatch(ctx context.Context, max int) []Event {
	if max <= 0 {
		max = 1
	}
	for {
		if batch := q.takeUpTo(max); batch != nil {
			return batch
		}
		select {
		case <-ctx.Done():
			// One final non-blocking sweep so a shutdown drain does not
			// leave events behind that arrived before cancellation.
			return q.takeUpTo(max)
		case <-q.notEmpty:
		}
	}
}

func (q *Queue) takeUpTo(max int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	n := max
	if n > q.count {
		n = q.count
	}
	batch := make([]Event, n)
	for i := 0; i < n; i++ {
		batch[i] = q.events[q.head]
		q.events[q.head] = Event{}
		q.head = (q.head + 1) % q.capacity
	}
	q.count -= n
	return batch
}

// Len returns the current number of buffered events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the fixed queue bound.
func (q *Queue) Capacity() int { return q.capacity }

// Dropped returns the total number of events rejected because the queue was
// full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
