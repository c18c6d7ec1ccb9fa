package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
)

// ContextSession is the gin context key holding the caller's *model.Session.
const ContextSession = "session"

// ContextClaims holds the *auth.SessionClaims set by Identify.
const ContextClaims = "claims"

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization format")
	errStaleSession  = errors.New("session is no longer active")
)

// SessionValidator resolves the session a token was issued for.
type SessionValidator interface {
	Validate(sessionID string) (*model.Session, bool)
}

type AuthMiddleware struct {
	jwt      auth.JWTService
	sessions SessionValidator
}

func NewAuthMiddleware(jwt auth.JWTService, sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:      jwt,
		sessions: sessions,
	}
}

// Authenticate verifies the bearer token and that it still names the
// active session. A token from a replaced or expired session is rejected.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		sess, ok := m.sessions.Validate(claims.SessionID())
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized(errStaleSession))
			return
		}

		c.Set(ContextSession, sess)
		c.Next()
	}
}

// Identify requires a token signed by this server but not a live session,
// so a client whose session expired or was replaced can still log out and
// read its own notices.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		claims, err := m.jwt.VerifySignature(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// CurrentClaims returns the claims stored by Identify, or nil.
func CurrentClaims(c *gin.Context) *auth.SessionClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.SessionClaims)
	return claims
}

// RequireAdmin must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).IsAdmin() {
			httputil.RespondWithError(c, apperrors.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session stored by Authenticate, or nil.
func CurrentSession(c *gin.Context) *model.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*model.Session)
	return sess
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingHeader
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errBadFormat
	}
	return parts[1], nil
}
