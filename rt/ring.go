package rt

import "sync/atomic"

// Ring is a bounded single-producer single-consumer queue. Push fails instead
// of blocking when the ring is full, so the caller can surface a capacity
// error; Pop never blocks either. No allocation happens after construction.
type Ring[T any] struct {
	buf  []T
	mask uint32
	head atomic.Uint32 // next Pop, advanced by the consumer
	tail atomic.Uint32 // next Push, advanced by the producer
}

// NewRing returns a ring holding at least capacity elements; the actual
// capacity is rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &Ring[T]{buf: make([]T, n), mask: uint32(n - 1)}
}

// Push appends v, reporting false when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint32(len(r.buf)) {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest element. The slot is zeroed so popped values do not
// keep pointers alive inside the ring.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.buf[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// Len reports how many elements are queued. It is exact only when called by
// one of the two sides.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}
