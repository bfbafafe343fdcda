// Per-IP rate limiting for the write endpoints. Fixed-window counters, reset
// lazily on the first request after the window elapses.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows up to limit requests per client IP per window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*clientWindow
	limit   int
	window  time.Duration
}

type clientWindow struct {
	remaining int
	openedAt  time.Time
}

// NewRateLimiter creates a limiter and starts its stale-entry sweeper.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	for {
		time.Sleep(time.Hour)
		rl.mu.Lock()
		now := time.Now()
		for ip, w := range rl.windows {
			if now.Sub(w.openedAt) > 2*rl.window {
				delete(rl.windows, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow reports whether the IP has budget left in its current window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.openedAt) >= rl.window {
		rl.windows[ip] = &clientWindow{remaining: rl.limit - 1, openedAt: now}
		return true
	}
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// RetryAfter returns seconds until the IP's window resets.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[ip]
	if !ok {
		return 0
	}
	remaining := rl.window - time.Since(w.openedAt)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Wrap applies the limiter to a handler, answering 429 with a Retry-After
// header when the budget is exhausted.
func (rl *RateLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to RemoteAddr
// with the port stripped.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndexByte(ip, ':'); idx >= 0 {
		return ip[:idx]
	}
	return ip
}
