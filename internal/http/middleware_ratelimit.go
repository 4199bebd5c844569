package httpx

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tallerhub/tallerhub/internal/observability/metrics"
)

const clientIdleTTL = 10 * time.Minute

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Rate    rate.Limit // events per second per client
	Burst   int
	Logger  *slog.Logger
	Metrics *metrics.Registry
	Now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters keeps one token bucket per client address. Idle entries are
// pruned lazily on access.
type clientLimiters struct {
	mu        sync.Mutex
	clients   map[string]*client
	rate      rate.Limit
	burst     int
	now       func() time.Time
	lastPrune time.Time
}

func (c *clientLimiters) allow(key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastPrune) > clientIdleTTL {
		for k, v := range c.clients {
			if now.Sub(v.lastSeen) > clientIdleTTL {
				delete(c.clients, k)
			}
		}
		c.lastPrune = now
	}

	cl, ok := c.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.rate, c.burst)}
		c.clients[key] = cl
	}
	cl.lastSeen = now

	res := cl.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit limits requests per client address. Rejected requests get 429
// with a Retry-After hint.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	limiters := &clientLimiters{
		clients: make(map[string]*client),
		rate:    cfg.Rate,
		burst:   cfg.Burst,
		now:     cfg.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, retry := limiters.allow(ip)
			if !ok {
				cfg.Metrics.LoginThrottled()
				cfg.Logger.WarnContext(r.Context(), "rate limited", "client", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				WriteError(w, ErrorParams{Code: http.StatusTooManyRequests, ErrCode: "rate_limited"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the remote host without port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
