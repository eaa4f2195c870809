// Package history keeps bounded in-memory histories of recent screenshots
// and analyses.
package history

import "sync"

// Default bounds for a history buffer.
const (
	DefaultCapacity = 100
	DefaultRetain   = 50
)

// Buffer is an append-only, bounded sequence. When a push takes it past
// capacity it is trimmed in one step to the most recent retain entries,
// keeping insertion order.
type Buffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	retain   int
}

// New creates a buffer. Non-positive bounds fall back to the defaults and
// retain is clamped to capacity.
func New[T any](capacity, retain int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retain <= 0 {
		retain = DefaultRetain
	}
	if retain > capacity {
		retain = capacity
	}
	return &Buffer[T]{
		items:    make([]T, 0, capacity+1),
		capacity: capacity,
		retain:   retain,
	}
}

// Push appends an entry, trimming if the buffer overflows.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, item)
	if len(b.items) > b.capacity {
		kept := make([]T, b.retain, b.capacity+1)
		copy(kept, b.items[len(b.items)-b.retain:])
		b.items = kept
	}
}

// Len returns the number of entries held.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// All returns a copy of every entry, oldest first.
func (b *Buffer[T]) All() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (b *Buffer[T]) Recent(n int) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(b.items) {
		n = len(b.items)
	}
	out := make([]T, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Last returns the newest entry.
func (b *Buffer[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Filter returns the entries for which keep returns true, oldest first.
func (b *Buffer[T]) Filter(keep func(T) bool) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []T
	for _, item := range b.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// Reset replaces the contents, keeping only the most recent entries that fit.
func (b *Buffer[T]) Reset(items []T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(items) > b.capacity {
		items = items[len(items)-b.retain:]
	}
	b.items = make([]T, len(items), b.capacity+1)
	copy(b.items, items)
}
