package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/service/dashboard"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

type Handler struct {
	service *dashboard.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *dashboard.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.auth.Authenticate(), h.GetDashboard)
}

// GetDashboard returns admin or patient statistics depending on the caller.
func (h *Handler) GetDashboard(c *gin.Context) {
	stats, err := h.service.ForSession(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
