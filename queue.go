package hsmx

import (
	"sync"
)

// EventQueue is a FIFO shared by any number of producers and one consumer.
//
// Stop is sticky: it rejects further sends and wakes every blocked Next. Events
// accepted before Stop are still handed out, after which Next returns
// ErrQueueStopped without blocking.
type EventQueue struct {
	mu       sync.Mutex
	ready    *sync.Cond // non-empty or stopped
	items    []Event
	head     int
	capacity int
	stopped  bool
}

// NewEventQueue returns a queue holding at most capacity events. Zero means
// unbounded.
func NewEventQueue(capacity int) *EventQueue {
	if capacity < 0 {
		capacity = 0
	}
	q := &EventQueue{capacity: capacity}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Send appends evt without blocking.
func (q *EventQueue) Send(evt Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueStopped
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, evt)
	q.ready.Signal()
	return nil
}

// SendFront puts evt ahead of every pending event. Capacity does not apply.
func (q *EventQueue) SendFront(evt Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrQueueStopped
	}
	if q.head > 0 {
		q.head--
		q.items[q.head] = evt
	} else {
		q.items = append(q.items, Event{})
		copy(q.items[1:], q.items)
		q.items[0] = evt
	}
	q.ready.Signal()
	return nil
}

// Next blocks until an event is available or the queue is stopped and drained.
func (q *EventQueue) Next() (Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.lenLocked() == 0 && !q.stopped {
		q.ready.Wait()
	}
	if q.lenLocked() == 0 {
		return Event{}, ErrQueueStopped
	}
	return q.popLocked(), nil
}

// TryNext returns the oldest event if there is one, without blocking.
func (q *EventQueue) TryNext() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lenLocked() == 0 {
		return Event{}, false
	}
	return q.popLocked(), true
}

// Stop rejects further sends and releases every waiter. Idempotent.
func (q *EventQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	q.ready.Broadcast()
}

// Clear discards pending events and returns how many were dropped.
func (q *EventQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.lenLocked()
	q.items = nil
	q.head = 0
	return n
}

func (q *EventQueue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *EventQueue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *EventQueue) popLocked() Event {
	evt := q.items[q.head]
	q.items[q.head] = Event{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return evt
}
