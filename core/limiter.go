package core

import "sync"

// CallLimiter counts capability calls made during one run and optionally
// enforces an upper bound.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Reserve checks whether n more calls fit in the budget without recording them.
func (l *CallLimiter) Reserve(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.count+n > l.max {
		return NewConfigurationError("max_generations", "run needs %d calls, budget is %d", l.count+n, l.max)
	}

	return nil
}

// Add records n calls. The budget is enforced up front by Reserve.
func (l *CallLimiter) Add(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count += n
}

// Count returns the current number of calls made.
func (l *CallLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}
