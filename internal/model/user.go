package model

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RolePatient Role = "Patient"
)

// User is a known identity. Credentials never leave the credential store.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	PatientID string `json:"patientId,omitempty"`
}

// Session is the authenticated user plus login metadata. ExpiresAt is
// persisted under its own key and is not part of the JSON body.
type Session struct {
	User
	LoginTime int64     `json:"loginTime"`
	SessionID string    `json:"sessionId,omitempty"`
	ExpiresAt time.Time `json:"-"`
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

func (s *Session) IsPatient() bool {
	return s != nil && s.Role == RolePatient
}

// Clone returns a copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SessionPatch lists the session fields that may change after login.
type SessionPatch struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,max=2048"`
}

func (p SessionPatch) Apply(s *Session) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Avatar != nil {
		s.Avatar = *p.Avatar
	}
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

type LoginResponse struct {
	Session   *Session  `json:"session"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionResponse struct {
	Session         *Session  `json:"session"`
	ExpiresAt       time.Time `json:"expires_at"`
	TimeRemainingMS int64     `json:"time_remaining_ms"`
}
