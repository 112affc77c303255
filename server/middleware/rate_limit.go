package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter throttles turn ingestion per client. A chatty client that
// floods turns would otherwise starve the consolidation queue, so each
// source gets its own token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limits   map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	lastSeen time.Duration
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		lastSeen: 10 * time.Minute,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if cl, ok := rl.limits[key]; ok {
		cl.seen = time.Now()
		return cl.limiter
	}

	// Opportunistic cleanup keeps the map bounded without a janitor goroutine.
	if len(rl.limits) > 1024 {
		cutoff := time.Now().Add(-rl.lastSeen)
		for k, cl := range rl.limits {
			if cl.seen.Before(cutoff) {
				delete(rl.limits, k)
			}
		}
	}

	cl := &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst), seen: time.Now()}
	rl.limits[key] = cl
	return cl.limiter
}

// Allow reports whether a request from key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects over-limit requests with 429, keyed by client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code":    "RATE_LIMITED",
					"message": "too many requests",
				})
			}
			return next(c)
		}
	}
}
