package server

import (
	"sync"
	"time"
)

const rateLimitWindow = time.Minute

// RateLimiter tracks request timestamps per client IP over a sliding
// one-minute window. Each rate-limited route class gets its own limiter.
type RateLimiter struct {
	mu           sync.Mutex
	windows      map[string][]time.Time
	maxPerMinute int

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a limiter allowing maxPerMinute requests per IP
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		windows:      make(map[string][]time.Time),
		maxPerMinute: maxPerMinute,
		stopCleanup:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records and admits the request unless the window is full
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	window := rl.prune(ip, now)

	if len(window) >= rl.maxPerMinute {
		rl.windows[ip] = window
		return false
	}

	rl.windows[ip] = append(window, now)
	return true
}

// RetryAfter returns the whole seconds until the oldest request in the
// window expires, rounded up.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	window := rl.windows[ip]
	if len(window) == 0 {
		return 0
	}

	remaining := rateLimitWindow - time.Since(window[0])
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// prune drops timestamps outside the window. Caller holds the lock.
func (rl *RateLimiter) prune(ip string, now time.Time) []time.Time {
	window := rl.windows[ip]
	cutoff := now.Add(-rateLimitWindow)
	valid := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip := range rl.windows {
				if window := rl.prune(ip, now); len(window) == 0 {
					delete(rl.windows, ip)
				} else {
					rl.windows[ip] = window
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop ends the background cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}
