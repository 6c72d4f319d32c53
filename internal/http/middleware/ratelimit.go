package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to its rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP buckets signed-in callers by user id and anonymous
// marketplace browsers by client IP.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// maxBuckets bounds memory; the least recently seen key is dropped first
// and simply starts again with a full bucket.
const maxBuckets = 10000

// RateLimiter is a process-local token bucket per key. Safe for concurrent
// use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu      sync.Mutex // serializes get-or-create
	buckets *lru.Cache
}

// NewRateLimiter allows rps requests per second per key with bursts up to
// burst (at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	buckets, _ := lru.New(maxBuckets) // only fails for size <= 0
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, keyFn: keyFn, buckets: buckets}
}

func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets.Add(key, lim)
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit with a 429 envelope (code "too_many_requests")
// and Retry-After in whole seconds. Idempotent replays are never limited.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		lim := rl.bucket(rl.keyFn(c))
		if !lim.Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfter(lim)))
			abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// retryAfter estimates when the next token is available, at least 1s.
func retryAfter(lim *rate.Limiter) int {
	r := lim.Reserve()
	defer r.Cancel()
	if secs := int(r.Delay().Round(time.Second) / time.Second); secs > 1 {
		return secs
	}
	return 1
}
