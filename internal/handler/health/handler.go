package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
)

const readyTimeout = 2 * time.Second

type Handler struct {
	store    kvstore.Store
	gatherer prometheus.Gatherer
}

func NewHandler(store kvstore.Store, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		store:    store,
		gatherer: gatherer,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
		health.GET("/metrics", h.Metrics())
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Key-value store unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
