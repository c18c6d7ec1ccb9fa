package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

type TimeoutConfig struct {
	Duration time.Duration
}

func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Duration: 30 * time.Second,
	}
}

// Timeout bounds the request context. Handlers pass it to the store and the
// session manager, so a slow backend or a pending login delay is cut short.
func Timeout(config TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Duration <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.Duration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
