package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"syncactivity/internal/httputil"
)

const rateLimiterExpiry = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than rateLimiterExpiry are dropped on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	clock     clockwork.Clock
	lastSweep time.Time
}

func NewRateLimiter(ratePerSecond float64, burst int, clock clockwork.Clock) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(ratePerSecond),
		burst:     burst,
		clock:     clock,
		lastSweep: clock.Now(),
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) > rateLimiterExpiry {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > rateLimiterExpiry {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, http.StatusTooManyRequests, httputil.ErrCodeRateLimited, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
