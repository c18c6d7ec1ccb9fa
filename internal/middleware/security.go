package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig lists the response headers added to every API response.
type SecurityConfig struct {
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	CacheControl       string
	CSPDirectives      []string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		// responses carry patient data
		CacheControl: "no-store",
		CSPDirectives: []string{
			"default-src 'none'",
			"frame-ancestors 'none'",
		},
	}
}

func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	csp := strings.Join(config.CSPDirectives, "; ")
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", config.FrameOptions)
		c.Header("X-Content-Type-Options", config.ContentTypeOptions)
		c.Header("Referrer-Policy", config.ReferrerPolicy)
		if config.CacheControl != "" {
			c.Header("Cache-Control", config.CacheControl)
		}
		if csp != "" {
			c.Header("Content-Security-Policy", csp)
		}
		c.Next()
	}
}
