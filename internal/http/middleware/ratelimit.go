package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a per-process fixed window keyed by client IP.
type memoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	max     int
	window  time.Duration
	now     func() time.Time
}

func newMemoryLimiter(maxRequests int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		clients: make(map[string]*clientInfo),
		max:     maxRequests,
		window:  window,
		now:     time.Now,
	}
}

// allow counts one hit for key and reports whether it is within the limit.
func (l *memoryLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) >= l.window {
		l.clients[key] = &clientInfo{start: now, count: 1}
		l.sweep(now)
		return 1 <= l.max
	}
	ci.count++
	return ci.count <= l.max
}

// sweep drops expired windows once the table grows.
func (l *memoryLimiter) sweep(now time.Time) {
	if len(l.clients) < 1024 {
		return
	}
	for k, ci := range l.clients {
		if now.Sub(ci.start) >= l.window {
			delete(l.clients, k)
		}
	}
}
