package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks request timestamps per key over a sliding window.
type RateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit requests per
// window. A non-positive window defaults to one minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}

	go rl.evictLoop()

	return rl
}

// Allow records a request for the key and reports whether it is within
// the limit. When rejected, retryAfter is how long until the oldest
// counted request leaves the window.
func (rl *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	times := rl.prune(key, now)

	if len(times) >= rl.limit {
		rl.seen[key] = times
		return false, times[0].Add(rl.window).Sub(now)
	}

	rl.seen[key] = append(times, now)
	return true, 0
}

// prune drops timestamps that fell out of the window. Timestamps are
// appended in order, so a single cut point suffices. Caller holds the lock.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	times := rl.seen[key]
	cutoff := now.Add(-rl.window)

	first := len(times)
	for i, ts := range times {
		if ts.After(cutoff) {
			first = i
			break
		}
	}
	return times[first:]
}

// evictLoop drops idle keys so the map does not grow with one-off clients.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key := range rl.seen {
			if remaining := rl.prune(key, now); len(remaining) == 0 {
				delete(rl.seen, key)
			} else {
				rl.seen[key] = remaining
			}
		}
		rl.mu.Unlock()
	}
}

// jsonRateLimited writes a rate limited error response with a
// Retry-After hint.
func jsonRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter/time.Second) + 1
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "RATE_LIMITED",
			"message": "too many requests",
		},
	})
}

// RateLimitByIP returns middleware that rate limits by client IP.
func RateLimitByIP(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(getClientIP(r))
			if !allowed {
				jsonRateLimited(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByUser returns middleware that rate limits by authenticated
// user, falling back to the client IP before authentication.
func RateLimitByUser(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetUserID(r.Context())
			if key == "" {
				key = getClientIP(r)
			}

			allowed, retryAfter := limiter.Allow(key)
			if !allowed {
				jsonRateLimited(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request. X-Forwarded-For
// may carry a comma-separated chain; the first entry is the client.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
