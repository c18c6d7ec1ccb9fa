package calendar

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

const dateLayout = "2006-01-02"

// Handler serves the admin calendar views over the appointment service.
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
	calendar := r.Group("/calendar", h.auth.Authenticate(), h.auth.RequireAdmin())
	{
		calendar.GET("/day", h.Day)
		calendar.GET("/week", h.Week)
		calendar.GET("/month", h.Month)
	}
}

func (h *Handler) Day(c *gin.Context) {
	day, err := h.date(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	bucket, err := h.service.Day(c.Request.Context(), day)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bucket)
}

func (h *Handler) Week(c *gin.Context) {
	day, err := h.date(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	week, err := h.service.Week(c.Request.Context(), day)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, week)
}

func (h *Handler) Month(c *gin.Context) {
	today := h.service.Today()
	year, err := handler.QueryInt(c, "year", today.Year())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	month, err := handler.QueryInt(c, "month", int(today.Month()))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if month < 1 || month > 12 {
		httputil.RespondWithError(c, apperrors.NewBadRequest("month must be between 1 and 12", nil))
		return
	}

	grid, err := h.service.Month(c.Request.Context(), year, time.Month(month))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, grid)
}

// date reads ?date=YYYY-MM-DD in the clinic's location, defaulting to today.
func (h *Handler) date(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return h.service.Today(), nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, h.service.Location())
	if err != nil {
		return time.Time{}, apperrors.NewBadRequest("date must be YYYY-MM-DD", err)
	}
	return day, nil
}
