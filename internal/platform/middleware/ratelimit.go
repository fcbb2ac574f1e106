package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/cache"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long a client's bucket is kept without requests.
	// It is raised to at least the time a drained bucket needs to refill.
	IdleTTL time.Duration
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
		IdleTTL:           10 * time.Minute,
	}
}

// tokenBucket implements a token bucket rate limiter.
type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(rate float64, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: now,
	}
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// retryAfter estimates whole seconds until the next token.
func (b *tokenBucket) retryAfter() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refillRate <= 0 {
		return 1
	}
	return int((1-b.tokens)/b.refillRate) + 1
}

// RateLimiter keeps one token bucket per client in a TTL cache, so buckets
// of clients that went quiet are dropped by the cache sweep.
type RateLimiter struct {
	cfg     RateLimitConfig
	buckets *cache.Cache[*tokenBucket]
	now     func() time.Time
	mu      sync.Mutex
}

// NewRateLimiter builds a limiter. Unset fields of cfg fall back to
// DefaultRateLimitConfig.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = def.BurstSize
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if refill := time.Duration(float64(cfg.BurstSize) / cfg.RequestsPerSecond * float64(time.Second)); cfg.IdleTTL < refill {
		cfg.IdleTTL = refill
	}
	l := &RateLimiter{cfg: cfg, now: time.Now}
	l.buckets = cache.New[*tokenBucket](
		cache.WithDefaultTTL(cfg.IdleTTL),
		cache.WithClock(func() time.Time { return l.now() }),
	)
	return l
}

// bucket returns the client's bucket and pushes its idle expiry forward.
func (l *RateLimiter) bucket(key string) *tokenBucket {
	b, ok := l.buckets.Get(key)
	if !ok {
		l.mu.Lock()
		if b, ok = l.buckets.Get(key); !ok {
			b = newTokenBucket(l.cfg.RequestsPerSecond, l.cfg.BurstSize, l.now())
		}
		l.buckets.Set(key, b, l.cfg.IdleTTL)
		l.mu.Unlock()
		return b
	}
	l.buckets.Set(key, b, l.cfg.IdleTTL)
	return b
}

// Clients returns the number of tracked buckets.
func (l *RateLimiter) Clients() int {
	return l.buckets.Len()
}

// StartCleanup sweeps idle buckets every interval until ctx is cancelled.
func (l *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	l.buckets.StartCleanup(ctx, interval)
}

// rateLimitKey buckets authenticated callers by user and anonymous ones by IP.
func rateLimitKey(c echo.Context) string {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.RealIP()
}

// Middleware returns the per-client rate limiting middleware.
func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	limit := strconv.FormatFloat(l.cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bucket := l.bucket(rateLimitKey(c))
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			if !bucket.allow(l.now()) {
				h.Set("Retry-After", strconv.Itoa(bucket.retryAfter()))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
