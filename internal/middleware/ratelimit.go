package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	minLimiterIdle = 10 * time.Minute
	maxLimiterIdle = 24 * time.Hour
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware holds a token bucket per client IP.
type RateLimiterMiddleware struct {
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	// Rate is the number of events per second.
	rate rate.Limit
	// Burst is the burst size.
	burst int
	// proxies are the peers allowed to set X-Forwarded-For.
	proxies []netip.Prefix
	// idle is how long a limiter may go unused before it is dropped.
	// It is never shorter than the time a bucket takes to refill.
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. Forwarded
// headers are only honoured when the peer address is in trustedProxies.
func NewRateLimiterMiddleware(r rate.Limit, b int, trustedProxies []netip.Prefix) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limiters: make(map[string]*clientLimiter),
		rate:     r,
		burst:    b,
		proxies:  trustedProxies,
		idle:     idleTimeout(r, b),
		now:      time.Now,
	}
}

func idleTimeout(r rate.Limit, b int) time.Duration {
	if r <= 0 || r == rate.Inf {
		return minLimiterIdle
	}
	refill := float64(b) / float64(r) * float64(time.Second)
	switch {
	case refill > float64(maxLimiterIdle):
		return maxLimiterIdle
	case refill < float64(minLimiterIdle):
		return minLimiterIdle
	}
	return time.Duration(refill)
}

func (rl *RateLimiterMiddleware) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		for k, cl := range rl.limiters {
			if now.Sub(cl.lastSeen) >= rl.idle {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	cl, exists := rl.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (rl *RateLimiterMiddleware) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware is the actual middleware handler.
func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, rl.proxies)
		if !rl.limiter(ip).Allow() {
			slog.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the peer address of r. When the peer is a trusted proxy the
// X-Forwarded-For chain is walked from the right and the first untrusted hop wins.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !isTrusted(host, trusted) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		client = hop
		if !isTrusted(hop, trusted) {
			break
		}
	}
	return client
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
