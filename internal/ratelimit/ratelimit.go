package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Limiter enforces per-key request budgets over sliding reset windows.
// A zero or negative budget means unlimited.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func New() *Limiter {
	return &Limiter{windows: make(map[string]*window)}
}

// Allow consumes one request from key's budget if available. The window
// restarts once its duration has fully elapsed.
func (l *Limiter) Allow(key string, budget int, windowDur time.Duration) bool {
	if budget <= 0 || windowDur <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= windowDur {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= budget {
		return false
	}
	w.count++
	return true
}

// Used reports how many requests key has consumed in its current window.
func (l *Limiter) Used(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.windows[key]; ok {
		return w.count
	}
	return 0
}
