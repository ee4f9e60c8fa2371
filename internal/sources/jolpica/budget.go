package jolpica

import (
	"sync"
	"time"
)

// budget is a fixed-window request counter. The window restarts on the
// first request made after the previous one expired.
type budget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	used   int
	now    func() time.Time
}

func newBudget(limit int, window time.Duration) *budget {
	return &budget{limit: limit, window: window, now: time.Now}
}

// take reserves one request. A limit <= 0 disables the budget.
func (b *budget) take() bool {
	if b.limit <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.start.IsZero() || now.Sub(b.start) >= b.window {
		b.start = now
		b.used = 0
	}
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// remaining reports what is left in the current window.
func (b *budget) remaining() int {
	if b.limit <= 0 {
		return -1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.start.IsZero() || b.now().Sub(b.start) >= b.window {
		return b.limit
	}
	return b.limit - b.used
}
