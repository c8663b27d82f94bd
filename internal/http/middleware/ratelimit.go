// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-process token-bucket limiters: a global
// per-client limiter for the whole API and a much stricter one for public
// contact submissions (a few per hour per IP). Buckets come from
// golang.org/x/time/rate and idle ones are evicted by Sweep, which the
// background jobs call periodically, and opportunistically on lookup.
//
// Limits are per process. Behind several replicas each one enforces its own.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to a bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByClientIP buckets by client address.
func KeyByClientIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// KeyByAdminOrIP prefers the proxy-asserted admin identity and falls back to
// the client address.
func KeyByAdminOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if u := adminFromCtx(c); u != "" {
			return "admin:" + u
		}
		return "ip:" + c.ClientIP()
	}
}

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by a rate limiter.",
	},
	[]string{"limiter"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket limiter, safe for concurrent use.
type RateLimiter struct {
	name     string
	limit    rate.Limit
	burst    int
	keyFn    KeyFunc
	ttl      time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  uint64
}

// NewRateLimiter allows rps requests per second with the given burst. A
// burst <= 0 is raised to 1.
func NewRateLimiter(name string, rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	return newLimiter(name, rate.Limit(rps), burst, keyFn)
}

// NewHourlyLimiter allows n requests per hour per key, all of which may be
// spent at once.
func NewHourlyLimiter(name string, n int, keyFn KeyFunc) *RateLimiter {
	if n <= 0 {
		n = 1
	}
	return newLimiter(name, rate.Every(time.Hour/time.Duration(n)), n, keyFn)
}

func newLimiter(name string, l rate.Limit, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	ttl := 10 * time.Minute
	if l > 0 {
		// A bucket idle for this long is full again; dropping it loses nothing.
		if full := time.Duration(float64(burst) / float64(l) * float64(time.Second)); full > ttl {
			ttl = full
		}
	}
	return &RateLimiter{
		name:     name,
		limit:    l,
		burst:    burst,
		keyFn:    keyFn,
		ttl:      ttl,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups%5000 == 0 {
		rl.sweepLocked(now)
	}
	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Sweep evicts buckets idle for longer than the refill window and returns
// how many were removed.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.sweepLocked(now)
}

func (rl *RateLimiter) sweepLocked(now time.Time) int {
	n := 0
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
			n++
		}
	}
	return n
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// IsRateBypass reports whether IdempotencyValidator flagged a replay.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// Handler enforces the limit. Rejected requests get 429 too_many_requests
// with Retry-After set to the wait for the next token, in whole seconds.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		now := time.Now()
		lim := rl.get(rl.keyFn(c), now)

		r := lim.ReserveN(now, 1)
		if r.OK() && r.DelayFrom(now) == 0 {
			c.Next()
			return
		}
		wait := time.Second
		if r.OK() {
			wait = r.DelayFrom(now)
			r.CancelAt(now)
		}

		rateLimited.WithLabelValues(rl.name).Inc()
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
