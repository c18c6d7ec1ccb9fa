package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/httputil"
	"github.com/jwalitptl/dental-api/pkg/logger"
)

type staticSessions struct {
	sess *model.Session
}

func (s staticSessions) Validate(id string) (*model.Session, bool) {
	if s.sess == nil || s.sess.SessionID != id {
		return nil, false
	}
	return s.sess.Clone(), true
}

func init() {
	gin.SetMode(gin.TestMode)
}

func issue(t *testing.T, jwt auth.JWTService, sess *model.Session) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.GenerateSessionToken(auth.TokenSubject{
		SessionID: sess.SessionID,
		UserID:    sess.ID,
		Email:     sess.Email,
		Role:      string(sess.Role),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)
	return token
}

func newAuthEngine(m *AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		httputil.RespondWithSuccess(c, CurrentSession(c))
	})
	r.GET("/admin", m.Authenticate(), m.RequireAdmin(), func(c *gin.Context) {
		httputil.RespondWithMessage(c, "ok")
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	jwt := auth.NewJWTService("secret", "test")
	admin := &model.Session{
		User:      model.User{ID: "1", Email: "admin@entnt.in", Role: model.RoleAdmin, Name: "Dr. Smith"},
		SessionID: "s-admin",
	}
	patient := &model.Session{
		User:      model.User{ID: "2", Email: "john@entnt.in", Role: model.RolePatient, Name: "John Doe", PatientID: "p1"},
		SessionID: "s-patient",
	}

	t.Run("missing header", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: admin}))
		w := do(r, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: admin}))
		w := do(r, http.MethodGet, "/me", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("active session", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: admin}))
		w := do(r, http.MethodGet, "/me", issue(t, jwt, admin))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data model.Session `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "1", body.Data.ID)
	})

	t.Run("replaced session", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: patient}))
		w := do(r, http.MethodGet, "/me", issue(t, jwt, admin))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("patient denied admin route", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: patient}))
		w := do(r, http.MethodGet, "/admin", issue(t, jwt, patient))
		require.Equal(t, http.StatusForbidden, w.Code)

		var body httputil.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, apperrors.PermissionDeniedMessage, body.Message)
	})

	t.Run("admin allowed", func(t *testing.T) {
		r := newAuthEngine(NewAuthMiddleware(jwt, staticSessions{sess: admin}))
		w := do(r, http.MethodGet, "/admin", issue(t, jwt, admin))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIdentify(t *testing.T) {
	jwt := auth.NewJWTService("secret", "test")
	r := gin.New()
	r.GET("/whoami", NewAuthMiddleware(jwt, staticSessions{}).Identify(), func(c *gin.Context) {
		httputil.RespondWithMessage(c, CurrentClaims(c).Subject)
	})

	expired, err := jwt.GenerateSessionToken(auth.TokenSubject{
		SessionID: "s-old",
		UserID:    "2",
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/whoami", expired)
	require.Equal(t, http.StatusOK, w.Code)
	var body httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2", body.Message)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/whoami", "").Code)

	otherIssuer := auth.NewJWTService("secret", "elsewhere")
	foreign := issue(t, otherIssuer, &model.Session{User: model.User{ID: "1"}, SessionID: "s"})
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/whoami", foreign).Code)

	forged := issue(t, auth.NewJWTService("other", "test"), &model.Session{User: model.User{ID: "1"}, SessionID: "s"})
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/whoami", forged).Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "", wantErr: true},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer", wantErr: true},
		{header: "Bearer a b", wantErr: true},
		{header: "Bearer abc", want: "abc"},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			c.Request.Header.Set("Authorization", tt.header)
		}
		got, err := BearerToken(c)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig("http://localhost:3000")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2}).RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/", "").Code)
}

func TestRecoveryAndRequestID(t *testing.T) {
	log := logger.Nop()
	r := gin.New()
	r.Use(RequestID(log), Recovery(log))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(HeaderXRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "rid-1", w.Header().Get(HeaderXRequestID))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Nop()))
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFound("patient", nil))
	})

	w := do(r, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
