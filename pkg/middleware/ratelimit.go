package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxPeekBody bounds how much of a request body the login keyer will buffer.
// Login payloads are a username plus a handful of group encodings, well under
// this.
const maxPeekBody = 1 << 20

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks a token-bucket budget per key. The blanket middleware keys
// on the client IP; the login middleware keys on the claimed username, since
// the guessing surface of a password login is the account, not the
// connection it arrives on.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
}

// NewLimiter allows maxRequests per window per key and starts the sweep that
// evicts idle buckets. Close stops the sweep.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		panic("maxRequests must be positive")
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:   maxRequests,
		window:  window,
		stop:    make(chan struct{}),
	}

	go l.sweep()
	return l
}

// Close stops the background sweep. Buckets already handed out keep working.
func (l *Limiter) Close() {
	close(l.stop)
}

// Allow reports whether the budget for key admits another request.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()

	return b.limiter.Allow()
}

// ByClientIP throttles on the requester's address. Suited as a blanket
// middleware for the whole router.
func (l *Limiter) ByClientIP() func(http.Handler) http.Handler {
	return l.middleware(clientIP)
}

// ByLoginUser throttles on the username claimed in a JSON login body,
// falling back to the client address when the body carries none. Guessing
// one account's password from many addresses lands every attempt in the
// same bucket.
func (l *Limiter) ByLoginUser() func(http.Handler) http.Handler {
	return l.middleware(loginUserKey)
}

func (l *Limiter) middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)

			l.mu.Lock()
			for key, b := range l.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// loginUserKey peeks the username out of a JSON login body, replacing the
// body so the handler downstream can read it again.
func loginUserKey(r *http.Request) string {
	if r.Body == nil {
		return clientIP(r)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBody))
	if err != nil {
		return clientIP(r)
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		User string `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.User == "" {
		return clientIP(r)
	}

	return "user:" + payload.User
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
