package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/handler"
	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/session"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

// UserDirectory lists the known users without their credentials.
type UserDirectory interface {
	Users() []model.User
}

type Handler struct {
	sessions *session.Manager
	users    UserDirectory
	tokens   auth.JWTService
	notices  *session.NoticeBoard
	auth     *middleware.AuthMiddleware
	limiter  *middleware.RateLimiter
}

// NewHandler wires the auth routes. limiter may be nil to disable login
// rate limiting.
func NewHandler(
	sessions *session.Manager,
	users UserDirectory,
	tokens auth.JWTService,
	notices *session.NoticeBoard,
	authMW *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
) *Handler {
	return &Handler{
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		notices:  notices,
		auth:     authMW,
		limiter:  limiter,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		login := []gin.HandlerFunc{h.Login}
		if h.limiter != nil {
			login = append([]gin.HandlerFunc{h.limiter.RateLimit()}, login...)
		}
		group.POST("/login", login...)
		group.POST("/logout", h.auth.Identify(), h.Logout)
		group.GET("/notices", h.auth.Identify(), h.Notices)

		protected := group.Group("", h.auth.Authenticate())
		protected.GET("/session", h.GetSession)
		protected.PATCH("/session", h.UpdateSession)
		protected.GET("/users", h.ListUsers)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	sess, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	token, err := h.tokens.GenerateSessionToken(auth.TokenSubject{
		SessionID: sess.SessionID,
		UserID:    sess.ID,
		Email:     sess.Email,
		Role:      string(sess.Role),
		IssuedAt:  time.UnixMilli(sess.LoginTime),
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}

	httputil.RespondWithSuccess(c, model.LoginResponse{
		Session:   sess,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout is idempotent. Any token this server signed is accepted, but it only
// ends the session it was issued for.
func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if _, err := h.sessions.LogoutSession(c.Request.Context(), claims.SessionID()); err != nil {
		httputil.RespondWithError(c, apperrors.NewInternal(err))
		return
	}
	httputil.RespondWithMessage(c, "logged out successfully")
}

// Notices drains the caller's pending notices, such as the expiry message.
func (h *Handler) Notices(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	httputil.RespondWithSuccess(c, h.notices.DrainFor(claims.Subject))
}

func (h *Handler) GetSession(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	remaining, _ := h.sessions.TimeRemaining()
	httputil.RespondWithSuccess(c, model.SessionResponse{
		Session:         sess,
		ExpiresAt:       sess.ExpiresAt,
		TimeRemainingMS: remaining.Milliseconds(),
	})
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var patch model.SessionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httputil.RespondWithError(c, handler.BadBody(err))
		return
	}

	sess, err := h.sessions.Update(c.Request.Context(), patch)
	if errors.Is(err, session.ErrNoSession) {
		httputil.RespondWithError(c, apperrors.Unauthorized(err))
		return
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sess)
}

func (h *Handler) ListUsers(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.users.Users())
}
