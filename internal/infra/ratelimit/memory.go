// Package ratelimit provides a process-local fixed-window counter for
// single-instance deployments and tests. Best-effort abuse mitigation only;
// financial correctness never depends on it.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int
	resetTime time.Time
}

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether another request fits into the current window for
// key. A fresh or expired window is restarted at count 1.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, windowDur time.Duration) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetTime) {
		l.windows[key] = &window{count: 1, resetTime: now.Add(windowDur)}
		return true, nil
	}

	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Sweep drops expired windows; callers may run it periodically to bound
// memory on long-lived processes.
func (l *MemoryLimiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, w := range l.windows {
		if now.After(w.resetTime) {
			delete(l.windows, k)
		}
	}
}
