package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/templui/fileshare/internal/metrics"
)

// RateLimiter is a sliding-window limiter keyed by client address.
// Stale keys are swept during Allow at most once per window, so it needs
// no background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time // ascending per key
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow records a hit for key. When the budget is spent it returns false
// and the time until the oldest hit leaves the window.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	if now.Sub(rl.lastSweep) > rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	hits := expire(rl.hits[key], cutoff)
	if len(hits) >= rl.limit {
		rl.hits[key] = hits
		return false, hits[0].Sub(cutoff)
	}

	rl.hits[key] = append(hits, now)
	return true, 0
}

func (rl *RateLimiter) sweep(cutoff time.Time) {
	for key, hits := range rl.hits {
		hits = expire(hits, cutoff)
		if len(hits) == 0 {
			delete(rl.hits, key)
			continue
		}
		rl.hits[key] = hits
	}
}

func expire(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// RateLimitAuth guards the credential endpoints.
func RateLimitAuth(limit int, window time.Duration) func(http.HandlerFunc) http.HandlerFunc {
	return RateLimit(NewRateLimiter(limit, window))
}

// RateLimit rejects requests over the limiter's budget with 429 and a
// Retry-After hint.
func RateLimit(limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			allowed, retryAfter := limiter.Allow(ip)
			if !allowed {
				slog.Warn("rate limit exceeded", "ip", ip, "pattern", r.Pattern)
				metrics.RateLimitedTotal.WithLabelValues(r.Pattern).Inc()

				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}

			next(w, r)
		}
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
