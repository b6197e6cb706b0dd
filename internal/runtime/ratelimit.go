package runtime

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/documind/config"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Counter counts hits for key inside a fixed window that starts at the
// first hit.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter implements Counter with INCR and EXPIRE NX pipelined on every
// hit, so every API replica shares the same window. NX keeps the window
// anchored at the first hit and restores a TTL lost to a failed EXPIRE.
type RedisCounter struct {
	Client redis.UniversalClient
	Prefix string
}

func (r RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.Prefix + key
	var incr *redis.IntCmd
	var expire *redis.BoolCmd
	_, _ = r.Client.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		expire = p.ExpireNX(ctx, k, window)
		return nil
	})
	n, err := incr.Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	if err := expire.Err(); err != nil {
		return n, fmt.Errorf("redis expire: %w", err)
	}
	return n, nil
}

// WindowLimiter allows Limit hits per Window for each key.
type WindowLimiter struct {
	Counter Counter
	Limit   int
	Window  time.Duration
}

func (w WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := w.Counter.Hit(ctx, key, w.Window)
	if err != nil && n == 0 {
		return true, err
	}
	// a counted hit is judged even when its EXPIRE failed
	return n <= int64(w.Limit), err
}

// storeLimiter adapts echo's in-process limiter store.
type storeLimiter struct {
	store middleware.RateLimiterStore
}

func (s storeLimiter) Allow(_ context.Context, key string) (bool, error) {
	allowed, err := s.store.Allow(key)
	if err != nil {
		return true, err
	}
	return allowed, nil
}

// NewMemoryLimiter keeps per-key token buckets in process. A bucket holds
// limit tokens and refills at limit per window, so it smooths bursts instead
// of resetting on a fixed boundary like WindowLimiter.
func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return storeLimiter{store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: 2 * window,
	})}
}

// NewChatLimiter picks the Redis-backed limiter when a client is given and
// the in-memory one otherwise. It returns nil when limiting is disabled.
func NewChatLimiter(cfg config.RateLimitConfig, rdb redis.UniversalClient) Limiter {
	if cfg.ChatRequests <= 0 {
		return nil
	}
	if rdb != nil {
		return WindowLimiter{
			Counter: RedisCounter{Client: rdb, Prefix: "documind:ratelimit:chat:"},
			Limit:   cfg.ChatRequests,
			Window:  cfg.ChatWindow,
		}
	}
	return NewMemoryLimiter(cfg.ChatRequests, cfg.ChatWindow)
}

// RateLimit rejects callers over their allowance with 429. Callers are keyed
// by JWT subject when authenticated, else by client IP. Limiters report
// allowed when their backend fails, so errors never block a request.
func RateLimit(l Limiter, logger *log.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = log.New(log.Writer(), "[RATE] ", log.LstdFlags)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key, ok := SubjectFromContext(ctx)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}
			allowed, err := l.Allow(ctx, key)
			if err != nil {
				logger.Printf("limiter backend error for %s: %v", key, err)
			}
			if !allowed {
				recordRateLimited(ctx, c.Path())
				return echo.NewHTTPError(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}

var (
	rateMetricsOnce sync.Once
	rateLimited     otelmetric.Int64Counter
)

func recordRateLimited(ctx context.Context, route string) {
	rateMetricsOnce.Do(func() {
		rateLimited, _ = otel.Meter("documind/runtime").Int64Counter("documind_rate_limited_total",
			otelmetric.WithDescription("Requests rejected by the rate limiter"))
	})
	if rateLimited != nil {
		rateLimited.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("route", route)))
	}
}
