package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	apperrors "finsight/internal/errors"
	"finsight/internal/logger"
)

const limiterIdleTTL = 10 * time.Minute

// UserRateLimiter hands out one token bucket per user. Buckets unused for
// limiterIdleTTL are dropped.
type UserRateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *cache.Cache
}

// NewUserRateLimiter allows perSecond requests per user with the given burst.
// A non-positive perSecond disables limiting.
func NewUserRateLimiter(perSecond float64, burst int) *UserRateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &UserRateLimiter{
		limit:   limit,
		burst:   burst,
		buckets: cache.New(limiterIdleTTL, limiterIdleTTL),
	}
}

// Allow reports whether key may make another request now.
func (l *UserRateLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

func (l *UserRateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		l.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.buckets.Add(key, lim, cache.DefaultExpiration); err != nil {
		// lost the race; use the bucket that won
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// RateLimit rejects requests beyond the per-user budget with 429. It must run
// after AuthMiddleware; unauthenticated requests are keyed by client IP.
func RateLimit(l *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(UserIDKey)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.Allow(key) {
			logger.Get().Warnw("rate limit exceeded",
				"key", key,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			abortWithError(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
