package middleware

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/whisperbatch/errors"
)

const (
	// HeaderRateLimitLimit reports the configured requests per window.
	HeaderRateLimitLimit = "X-RateLimit-Limit"
	// HeaderRateLimitRemaining reports how many requests the key has left.
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	rateLimitWindow        = time.Minute
	defaultCleanupInterval = 5 * time.Minute
)

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string
	// SkipPaths are route paths the limiter lets through untouched, for
	// routes that carry a limiter of their own.
	SkipPaths []string
	// CleanupInterval controls how often idle keys are dropped.
	CleanupInterval time.Duration
}

// RateLimiter counts each key's hits over the last minute. Every limiter
// runs a janitor goroutine until Close.
type RateLimiter struct {
	cfg  RateLimitConfig
	now  func() time.Time
	stop context.CancelFunc

	mu   sync.Mutex
	hits map[string][]time.Time // ascending
}

// NewRateLimiter fills the config defaults (60 per minute, keyed by client
// IP) and starts the janitor.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.RequestsPerMinute = cmp.Or(max(cfg.RequestsPerMinute, 0), 60)
	cfg.CleanupInterval = cmp.Or(max(cfg.CleanupInterval, 0), defaultCleanupInterval)
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}

	ctx, stop := context.WithCancel(context.Background())
	rl := &RateLimiter{cfg: cfg, now: time.Now, stop: stop, hits: make(map[string][]time.Time)}
	go rl.janitor(ctx)
	return rl
}

// Limit is the number of requests a key may make per minute.
func (rl *RateLimiter) Limit() int { return rl.cfg.RequestsPerMinute }

// Handler enforces the limit. Every answer carries the limit headers; a
// rejected one adds Retry-After and a RATE_LIMITED body.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(rl.cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		ok, left, wait := rl.allow(rl.cfg.KeyFunc(c))
		c.Header(HeaderRateLimitLimit, strconv.Itoa(rl.Limit()))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(left))
		if ok {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
		err := apperrors.RateLimited(fmt.Sprintf("Rate limit exceeded: %d per 1 minute", rl.Limit()))
		c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
	}
}

// Close stops the janitor. Calling it again is harmless.
func (rl *RateLimiter) Close() error {
	rl.stop()
	return nil
}

// IPBasedKey keys requests by gin's client IP.
func IPBasedKey(c *gin.Context) string { return c.ClientIP() }

// allow counts a hit for key if the window has room. It returns the room
// left and, on refusal, the time until the oldest hit leaves the window.
func (rl *RateLimiter) allow(key string) (ok bool, left int, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	hits := recent(rl.hits[key], now)
	if len(hits) >= rl.Limit() {
		rl.hits[key] = hits
		return false, 0, hits[0].Add(rateLimitWindow).Sub(now)
	}
	rl.hits[key] = append(hits, now)
	return true, rl.Limit() - len(hits) - 1, 0
}

func (rl *RateLimiter) janitor(ctx context.Context) {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep forgets keys with no hit inside the window.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, hits := range rl.hits {
		if hits = recent(hits, now); len(hits) == 0 {
			delete(rl.hits, key)
		} else {
			rl.hits[key] = hits
		}
	}
}

// recent drops the hits older than the window from the ascending slice.
func recent(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateLimitWindow)
	i, _ := slices.BinarySearchFunc(hits, cutoff, func(t, c time.Time) int {
		if t.After(c) {
			return 1
		}
		return -1
	})
	return hits[i:]
}
