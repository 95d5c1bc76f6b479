package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nijaru/yt-blog/utils"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 256
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	mu             sync.Mutex
	clients        map[string]*clientLimiter
	limit          rate.Limit
	burst          int
	trustedProxies map[string]struct{}
	calls          int
	now            func() time.Time
}

func NewRateLimiter(requestsPerMinute int, burst int, trustedProxies []string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	trusted := make(map[string]struct{}, len(trustedProxies))
	for _, p := range trustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			trusted[p] = struct{}{}
		}
	}
	return &RateLimiter{
		clients:        make(map[string]*clientLimiter),
		limit:          rate.Limit(requestsPerMinute) / 60,
		burst:          burst,
		trustedProxies: trusted,
		now:            time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.calls++
	if rl.calls%limiterSweepEvery == 0 {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(rl.clients, k)
			}
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			utils.HandleError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the remote IP, or the first X-Forwarded-For hop when the
// request came through a trusted proxy.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if _, trusted := rl.trustedProxies[host]; trusted {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}
	return host
}
