// Package logbuffer holds the bounded, ordered window of daemon log lines
// shown by the live console.
package logbuffer

import "sync"

// DefaultCapacity is the number of lines kept when no capacity is given.
const DefaultCapacity = 1000

// Buffer is a FIFO of log lines capped at a fixed capacity. When full, the
// oldest lines are dropped first. It is safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	lines    []string
}

// New returns an empty buffer. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Capacity returns the maximum number of retained lines.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Append adds lines in order and evicts from the front until the bound holds.
// A batch larger than the capacity keeps only its newest lines.
func (b *Buffer) Append(lines ...string) {
	if len(lines) == 0 {
		return
	}
	if len(lines) >= b.capacity {
		lines = lines[len(lines)-b.capacity:]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if overflow := len(b.lines) + len(lines) - b.capacity; overflow > 0 {
		n := copy(b.lines, b.lines[overflow:])
		b.lines = b.lines[:n]
	}
	b.lines = append(b.lines, lines...)
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Clear drops every line.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.lines = b.lines[:0]
	b.mu.Unlock()
}
