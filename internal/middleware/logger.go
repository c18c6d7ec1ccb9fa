package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger logs every request once it has been handled. Bodies are never
// logged since login requests carry passwords.
func Logger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = logger.Error()
		case statusCode >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event = event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent())

		if sess := CurrentSession(c); sess != nil {
			event = event.Str("user_id", sess.ID).Str("role", string(sess.Role))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		switch {
		case statusCode >= 500:
			event.Msg("Server error")
		case statusCode >= 400:
			event.Msg("Client error")
		default:
			event.Msg("Request processed")
		}
	}
}
