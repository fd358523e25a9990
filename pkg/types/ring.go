package types

// RingBuffer is a bounded, newest-first collection of recent items. Pushing
// beyond capacity silently evicts the oldest item. It is not synchronized;
// owners guard access with their own lock.
type RingBuffer[T any] struct {
	items    []T
	capacity int
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{capacity: capacity}
}

func (b *RingBuffer[T]) Push(item T) {
	if len(b.items) < b.capacity {
		var zero T
		b.items = append(b.items, zero)
	}
	copy(b.items[1:], b.items)
	b.items[0] = item
}

// Items returns a copy of the buffer contents, newest first.
func (b *RingBuffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Newest returns the most recently pushed item, if any.
func (b *RingBuffer[T]) Newest() (T, bool) {
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	return b.items[0], true
}

func (b *RingBuffer[T]) Len() int {
	return len(b.items)
}

func (b *RingBuffer[T]) Cap() int {
	return b.capacity
}
