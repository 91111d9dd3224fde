package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key. A client may burst up
// to limit requests and refills at limit per window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	every   rate.Limit
	idle    time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		every:   rate.Limit(float64(limit) / window.Seconds()),
		idle:    window,
		now:     time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Allow reports whether key may make a request now and consumes a token
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.get(key).AllowN(rl.now(), 1)
}

// Remaining returns the whole tokens key has left
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	tokens := rl.get(key).TokensAt(rl.now())
	return max(0, int(math.Floor(tokens)))
}

// Sweep forgets clients idle for longer than one window
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idle)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey limits requests per key returned by keyFunc
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	var calls atomic.Uint64
	return func(c *gin.Context) {
		key := keyFunc(c)
		allowed := limiter.Allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))

		if calls.Add(1)%1024 == 0 {
			limiter.Sweep()
		}

		if !allowed {
			abort(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
