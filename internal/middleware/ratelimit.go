package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client's limiter is kept after its last request.
const idleAfter = 10 * time.Minute

// RateLimiter applies a token bucket per client IP. It guards the
// credential endpoints (/login, /register) against password guessing.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perSecond requests per client IP with bursts of up
// to burst requests.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Drop idle clients at most once per idleAfter so the map stays bounded.
	if now.Sub(rl.lastSweep) > idleAfter {
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > idleAfter {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// clientIP strips the port from RemoteAddr. chimiddleware.RealIP has
// already replaced RemoteAddr with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
