package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/service/patient"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

const defaultTopLimit = 3

type Handler struct {
	service *patient.Service
	auth    *middleware.AuthMiddleware
}

func NewHandler(service *patient.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
	}
}

// RegisterRoutes mounts the patient routes. All of them are admin-only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients", h.auth.Authenticate(), h.auth.RequireAdmin())
	{
		patients.GET("", h.ListPatients)
		patients.GET("/top", h.TopPatients)
		patients.GET("/:id", h.GetPatient)
		patients.POST("", h.CreatePatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filter model.PatientFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, res.Patients, res.Pagination.Page, res.Pagination.PageSize, res.Total)
}

func (h *Handler) TopPatients(c *gin.Context) {
	limit, err := handler.QueryInt(c, "limit", defaultTopLimit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	patients, err := h.service.Top(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var patch model.PatientPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	p, err := h.service.Update(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

// DeletePatient leaves the patient's appointments and treatments in place.
func (h *Handler) DeletePatient(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "patient deleted successfully")
}
