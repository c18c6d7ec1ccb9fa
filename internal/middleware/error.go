package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/httputil"
)

// ErrorHandler answers requests whose handlers recorded an error with
// c.Error but wrote no response themselves.
func ErrorHandler(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			logger.Debug().
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
