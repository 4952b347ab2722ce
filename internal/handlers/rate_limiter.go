package handlers

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ateliedecor/api/internal/platform/auth"
	"github.com/ateliedecor/api/internal/platform/httpx"
)

// fixedWindowLimiter counts requests per key inside a fixed window. Good
// enough for a single instance; per-pod limits are what the deployment
// sizes for anyway.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]requestWindow
}

type requestWindow struct {
	hits    int
	resetAt time.Time
}

func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) *fixedWindowLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]requestWindow),
	}
}

// Allow records a hit for key and reports whether it fits the window.
func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}

	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok || now.After(current.resetAt) {
		l.windows[key] = requestWindow{hits: 1, resetAt: now.Add(l.window)}
		l.dropStaleLocked(now)
		return true
	}
	if current.hits >= l.limit {
		return false
	}
	current.hits++
	l.windows[key] = current
	return true
}

// dropStaleLocked is called on window rollover so the map does not grow
// with one entry per client forever.
func (l *fixedWindowLimiter) dropStaleLocked(now time.Time) {
	for key, current := range l.windows {
		if now.After(current.resetAt) {
			delete(l.windows, key)
		}
	}
}

// RateLimit rejects clients exceeding limit requests per window.
// Authenticated requests are keyed by UID, anonymous ones by remote address.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newFixedWindowLimiter(limit, window, nil)
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && strings.TrimSpace(identity.UID) != "" {
		return "uid:" + identity.UID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
