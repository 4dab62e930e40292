package agent

import (
	"sync"
	"time"
)

// DefaultContextCapacity is the number of exchanges an agent remembers.
const DefaultContextCapacity = 100

// Entry is one remembered exchange.
type Entry struct {
	Prompt    string
	Response  string
	Timestamp time.Time
}

// ContextLog is a fixed capacity ring buffer; the oldest entry is evicted first.
type ContextLog struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
}

// NewContextLog creates a log holding at most capacity entries. A capacity
// below one selects DefaultContextCapacity.
func NewContextLog(capacity int) *ContextLog {
	if capacity < 1 {
		capacity = DefaultContextCapacity
	}
	return &ContextLog{entries: make([]Entry, capacity)}
}

// Add appends e, evicting the oldest entry when full.
func (l *ContextLog) Add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := len(l.entries)
	if l.size < c {
		l.entries[(l.start+l.size)%c] = e
		l.size++
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % c
}

// Recent returns up to n entries, oldest first. n <= 0 returns all entries.
func (l *ContextLog) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > l.size {
		n = l.size
	}
	out := make([]Entry, n)
	c := len(l.entries)
	offset := l.size - n
	for i := 0; i < n; i++ {
		out[i] = l.entries[(l.start+offset+i)%c]
	}
	return out
}

// Len returns the number of stored entries.
func (l *ContextLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.size
}

// Cap returns the capacity.
func (l *ContextLog) Cap() int { return len(l.entries) }
