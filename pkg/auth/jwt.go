package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims binds a bearer token to one session.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionID returns the session the token was issued for.
func (c *SessionClaims) SessionID() string {
	return c.ID
}

// TokenSubject is what the JWT service needs to know about a session.
type TokenSubject struct {
	SessionID string
	UserID    string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type JWTService interface {
	GenerateSessionToken(subject TokenSubject) (string, error)
	ValidateToken(token string) (*SessionClaims, error)
	// VerifySignature checks signature and issuer but accepts an expired
	// token, for callers that only need to know who signed in.
	VerifySignature(token string) (*SessionClaims, error)
}

type hmacService struct {
	secret []byte
	issuer string
}

// NewJWTService returns an HS256 token service.
func NewJWTService(secret, issuer string) JWTService {
	return &hmacService{secret: []byte(secret), issuer: issuer}
}

func (s *hmacService) GenerateSessionToken(subject TokenSubject) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        subject.SessionID,
			Subject:   subject.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(subject.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(subject.ExpiresAt),
		},
		Email: subject.Email,
		Role:  subject.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *hmacService) ValidateToken(token string) (*SessionClaims, error) {
	return s.parse(token, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
}

func (s *hmacService) VerifySignature(token string) (*SessionClaims, error) {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	return claims, nil
}

func (s *hmacService) parse(token string, opts ...jwt.ParserOption) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
