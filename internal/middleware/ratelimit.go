package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// RealIP extracts the client's real IP address, preferring Cloudflare's
// CF-Connecting-IP header, then X-Forwarded-For, and falling back to RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First IP in the chain is the original client
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DefaultLimiterSize caps how many keys a RateLimiter tracks at once.
const DefaultLimiterSize = 4096

type entry struct {
	count    int
	windowAt time.Time
}

// RateLimiter is a fixed-window limiter whose state lives in a bounded LRU, so
// a flood of distinct keys evicts the oldest windows instead of growing memory.
type RateLimiter struct {
	mu      sync.Mutex
	entries *lru.Cache
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterSize(DefaultLimiterSize)
}

func NewRateLimiterSize(size int) *RateLimiter {
	if size <= 0 {
		size = DefaultLimiterSize
	}
	cache, _ := lru.New(size)
	return &RateLimiter{entries: cache, now: time.Now}
}

// Allow returns true if the key has not exceeded limit in the given window.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.entries.Get(key)
	if !ok || now.After(v.(*entry).windowAt) {
		rl.entries.Add(key, &entry{count: 1, windowAt: now.Add(window)})
		return true
	}
	e := v.(*entry)
	e.count++
	return e.count <= limit
}

// Cleanup removes expired entries.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, key := range rl.entries.Keys() {
		if v, ok := rl.entries.Peek(key); ok && now.After(v.(*entry).windowAt) {
			rl.entries.Remove(key)
		}
	}
}

// Len reports how many keys are tracked.
func (rl *RateLimiter) Len() int {
	return rl.entries.Len()
}

// RateLimit returns middleware that rate-limits requests by a key function.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if !limiter.Allow(key, limit, window) {
				writeJSONError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
