package appointment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/appointment"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

const defaultUpcomingLimit = 5

type Handler struct {
	service *appointment.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *appointment.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments", h.auth.Authenticate())
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/upcoming", h.Upcoming)
		appointments.GET("/next", h.Next)
		appointments.GET("/last-visit", h.LastVisit)
		appointments.GET("/:id", h.GetAppointment)

		admin := appointments.Group("", h.auth.RequireAdmin())
		admin.POST("", h.CreateAppointment)
		admin.PUT("/:id", h.UpdateAppointment)
		admin.DELETE("/:id", h.DeleteAppointment)
		admin.POST("/:id/files", h.AttachFile)
		admin.DELETE("/:id/files/:index", h.DetachFile)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filter model.AppointmentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	appts, err := h.service.List(c.Request.Context(), middleware.CurrentSession(c), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}

func (h *Handler) Upcoming(c *gin.Context) {
	limit, err := handler.QueryInt(c, "limit", defaultUpcomingLimit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appts, err := h.service.Upcoming(c.Request.Context(), middleware.CurrentSession(c), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}

func (h *Handler) Next(c *gin.Context) {
	appt, err := h.service.Next(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) LastVisit(c *gin.Context) {
	appt, err := h.service.LastVisit(c.Request.Context(), middleware.CurrentSession(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	appt, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	var patch model.AppointmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	appt, err := h.service.Update(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "appointment deleted successfully")
}

func (h *Handler) AttachFile(c *gin.Context) {
	var req model.AttachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	appt, err := h.service.AttachFile(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appt)
}

func (h *Handler) DetachFile(c *gin.Context) {
	index, err := handler.ParamInt(c, "index")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appt, err := h.service.DetachFile(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}
