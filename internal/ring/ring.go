// Package ring provides a bounded single-producer single-consumer queue of
// note events. Push and Pop never block and never allocate.
package ring

import "sync/atomic"

// Event is a note event.
type Event struct {
	On      bool
	Channel uint8
	Pitch   uint8
}

// Queue is a lock-free ring of events. Only one goroutine may push and only
// one goroutine may pop at the same time.
type Queue struct {
	buf  []Event
	mask uint64
	head atomic.Uint64 // next slot to pop
	tail atomic.Uint64 // next slot to push
}

// New returns a queue with capacity rounded up to the power of two.
func New(size int) *Queue {
	n := 1
	for n < size {
		n <<= 1
	}
	return &Queue{
		buf:  make([]Event, n),
		mask: uint64(n - 1),
	}
}

// Push appends event. It returns false if queue is full.
func (q *Queue) Push(e Event) bool {
	t := q.tail.Load()
	if t-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[t&q.mask] = e
	q.tail.Store(t + 1)
	return true
}

// Pop removes the oldest event. It returns false if queue is empty.
func (q *Queue) Pop() (Event, bool) {
	h := q.head.Load()
	if h == q.tail.Load() {
		return Event{}, false
	}
	e := q.buf[h&q.mask]
	q.head.Store(h + 1)
	return e, true
}

// Len returns number of pending events.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Cap returns queue capacity.
func (q *Queue) Cap() int {
	return len(q.buf)
}
