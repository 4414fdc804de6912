package buffer

import "sync"

// RingBuffer is a fixed-capacity window over the most recent elements
// added. It is safe for concurrent use.
type RingBuffer[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// RingN returns a RingBuffer holding at most size elements. size must be
// positive.
func RingN[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("buffer: ring size must be positive")
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Add appends t, dropping the oldest element if the buffer is full.
func (rb *RingBuffer[T]) Add(t T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buf[rb.tail%int64(len(rb.buf))] = t
	rb.tail++
	if rb.tail-rb.head > int64(len(rb.buf)) {
		rb.head++
	}
}

// Snapshot returns a copy of the buffered elements, oldest first.
func (rb *RingBuffer[T]) Snapshot() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	out := make([]T, 0, rb.tail-rb.head)
	for i := rb.head; i < rb.tail; i++ {
		out = append(out, rb.buf[i%int64(len(rb.buf))])
	}
	return out
}
