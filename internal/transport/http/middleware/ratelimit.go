package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ideavote/internal/platform/clock"
	"ideavote/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*Limiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *Limiter) {
		if fn != nil {
			l.keyFn = fn
		}
	}
}

func WithRateClock(c clock.Clock) RateLimitOption {
	return func(l *Limiter) {
		if c != nil {
			l.clock = c
		}
	}
}

type bucket struct {
	count int
	reset time.Time
}

// Limiter is a fixed-window counter keyed per request. Expired buckets are
// dropped once per window so idle voters do not accumulate.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	keyFn     RateLimitKeyFunc
	clock     clock.Clock
	buckets   map[string]*bucket
	nextSweep time.Time
}

func NewLimiter(limit int, window time.Duration, opts ...RateLimitOption) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		keyFn:   principalOrIPKey,
		clock:   clock.Real(),
		buckets: map[string]*bucket{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := NewLimiter(limit, window, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// Allow counts the request and writes the 429 response when the key is over
// its limit.
func (l *Limiter) Allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	key := l.keyFn(r)
	if key == "" {
		key = ClientIP(r)
	}

	now := l.clock.Now()
	l.mu.Lock()
	if !now.Before(l.nextSweep) {
		for k, b := range l.buckets {
			if !now.Before(b.reset) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.reset) {
		b = &bucket{reset: now.Add(l.window)}
		l.buckets[key] = b
	}
	b.count++
	count, reset := b.count, b.reset
	l.mu.Unlock()

	resetIn := ceilSeconds(reset.Sub(now))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-count, 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if count <= l.limit {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path, "method", r.Method, "limit", l.limit)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sensitiveRoute lists the extra limiters a POST to an API path must pass.
type sensitiveRoute []*Limiter

// SensitiveMutationRateLimit adds tighter limits on logins and on vote and
// import mutations. Logins are limited per client IP and per submitted email,
// so one address cannot be targeted from many hosts. Votes and imports are
// limited per principal.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	loginLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)

	byIP := NewLimiter(loginLimit, window, append(opts, WithKeyFunc(ClientIP))...)
	byEmail := NewLimiter(loginLimit, window, append(opts, WithKeyFunc(JSONFieldOrIPKey("email")))...)
	byVoter := NewLimiter(mutationLimit, window, opts...)
	byAdmin := NewLimiter(mutationLimit, window, opts...)

	routes := map[string]sensitiveRoute{
		"/auth/login":             {byIP, byEmail},
		"/admin/login":            {byIP, byEmail},
		"/auth/oauth/callback":    {byIP},
		"/voting/session/start":   {byVoter},
		"/voting/session/cast":    {byVoter},
		"/admin/employees/import": {byAdmin},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				for _, l := range routes[apiPath(r.URL.Path)] {
					if !l.Allow(w, r) {
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JSONFieldOrIPKey keys on a string field of a JSON body, falling back to
// the client IP. The body is restored for the next handler.
func JSONFieldOrIPKey(field string) RateLimitKeyFunc {
	return func(r *http.Request) string {
		value := jsonField(r, field)
		if value == "" {
			return ClientIP(r)
		}
		return field + ":" + strings.ToLower(value)
	}
}

// ClientIP is the first X-Forwarded-For hop, or the remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func principalOrIPKey(r *http.Request) string {
	if p, ok := GetPrincipal(r.Context()); ok && p.Subject != "" {
		return p.Role + ":" + p.Subject
	}
	return ClientIP(r)
}

func jsonField(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

func apiPath(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	path = strings.TrimSuffix(path, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
