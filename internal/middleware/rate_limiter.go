package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter is a single token bucket shared by every caller of the
// routes it guards.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(config.Rate, config.Burst),
	}
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}
