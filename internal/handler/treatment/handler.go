package treatment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/service/treatment"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

const defaultRecentLimit = 5

type Handler struct {
	service *treatment.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *treatment.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	treatments := r.Group("/treatments", h.auth.Authenticate())
	{
		treatments.GET("", h.ListTreatments)
		treatments.GET("/recent", h.RecentTreatments)

		admin := treatments.Group("", h.auth.RequireAdmin())
		admin.GET("/summary", h.Summary)
		admin.GET("/revenue", h.Revenue)
		admin.GET("/:id", h.GetTreatment)
	}
}

func (h *Handler) ListTreatments(c *gin.Context) {
	treatments, err := h.service.List(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, treatments)
}

func (h *Handler) RecentTreatments(c *gin.Context) {
	limit, err := handler.QueryInt(c, "limit", defaultRecentLimit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	treatments, err := h.service.Recent(c.Request.Context(), middleware.CurrentSession(c), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, treatments)
}

func (h *Handler) GetTreatment(c *gin.Context) {
	t, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) Revenue(c *gin.Context) {
	report, err := h.service.Revenue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}
