package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
)

// APIPrefix is the base path of every route.
const APIPrefix = "/api/v1"

type Router struct {
	engine   *gin.Engine
	handlers []handler.RouteRegistrar
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	Mode          string
	CORSConfig    middleware.CORSConfig
	Timeout       time.Duration
	MetricsPrefix string
	Registerer    prometheus.Registerer
	Logger        zerolog.Logger
}

// LoginLimiter builds the token bucket guarding POST /auth/login, or nil
// when rate limiting is disabled.
func LoginLimiter(enabled bool, rps float64, burst int) *middleware.RateLimiter {
	if !enabled {
		return nil
	}
	return middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  rate.Limit(rps),
		Burst: burst,
	})
}

func NewRouter(config RouterConfig, handlers ...handler.RouteRegistrar) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()

	metrics := initRouterMetrics(config.MetricsPrefix)
	if config.Registerer != nil {
		config.Registerer.MustRegister(
			metrics.requestDuration,
			metrics.requestTotal,
			metrics.errorTotal,
		)
	}

	r := &Router{
		engine:   engine,
		handlers: handlers,
		metrics:  metrics,
	}

	engine.Use(
		middleware.RequestID(config.Logger),
		middleware.Logger(config.Logger),
		middleware.Recovery(config.Logger),
		middleware.ErrorHandler(config.Logger),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group(APIPrefix)
	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case c.Writer.Status() >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case c.Writer.Status() >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
