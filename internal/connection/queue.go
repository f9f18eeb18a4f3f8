package connection

import "sync"

// Queue is a session's outbound frame queue. Send never blocks: the ring
// doubles its capacity when it reaches 70% full, up to a hard length limit
// past which Send reports failure so the router can drop a slow session.
type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	limit    int
	closed   bool

	// Stats
	totalQueued int64
	totalSent   int64
	resizeCount int
	rejected    int64
}

// NewQueue creates a queue with the given initial capacity that holds at
// most limit items. A limit below the initial capacity is raised to it.
func NewQueue[T any](initialCapacity, limit int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if limit < initialCapacity {
		limit = initialCapacity
	}
	q := &Queue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		limit:    limit,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends an item. It returns false if the queue is closed or already
// holds limit items.
func (q *Queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.count >= q.limit {
		q.rejected++
		return false
	}

	// Grow at or above 70% capacity after adding this item
	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalQueued++

	q.cond.Signal()
	return true
}

// Receive removes and returns the oldest item, blocking until one is
// available. After Close it drains the remaining items and then returns
// the zero value and false.
func (q *Queue[T]) Receive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Close stops accepting items and wakes blocked receivers.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:       q.count,
		Capacity:    q.capacity,
		Limit:       q.limit,
		TotalQueued: q.totalQueued,
		TotalSent:   q.totalSent,
		ResizeCount: q.resizeCount,
		Rejected:    q.rejected,
	}
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count       int
	Capacity    int
	Limit       int
	TotalQueued int64
	TotalSent   int64
	ResizeCount int
	Rejected    int64
}

// popLocked removes the head item. Must be called with lock held and count > 0.
func (q *Queue[T]) popLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalSent++
	return item
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *Queue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
