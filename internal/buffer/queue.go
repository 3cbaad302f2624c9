package buffer

import "sync"

// Queue is a thread-safe FIFO ring that doubles its capacity when full.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	totalIn  int64
	totalOut int64
	resizes  int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
}

// Push appends an item, growing the ring if needed. Returns false if the
// queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if q.count == q.capacity {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalIn++
	return true
}

// TryPop removes and returns the oldest item without blocking. Returns
// the zero value and false when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// Drain removes up to max items (all items if max <= 0) in FIFO order.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := range result {
		result[i] = q.pop()
	}
	return result
}

// Close marks the queue closed. Pending items remain drainable; further
// pushes are rejected.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats contains queue counters.
type Stats struct {
	Count    int
	Capacity int
	TotalIn  int64
	TotalOut int64
	Resizes  int
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:    q.count,
		Capacity: q.capacity,
		TotalIn:  q.totalIn,
		TotalOut: q.totalOut,
		Resizes:  q.resizes,
	}
}

// pop removes the head item. Caller holds the lock and has checked count.
func (q *Queue[T]) pop() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // release reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalOut++
	return item
}

// grow doubles capacity, unwrapping the ring. Caller holds the lock.
func (q *Queue[T]) grow() {
	newBuf := make([]T, q.capacity*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}
	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = len(newBuf)
	q.resizes++
}
