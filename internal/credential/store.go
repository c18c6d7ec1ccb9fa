// Package credential holds the fixed list of users that may log in.
package credential

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/security"
)

// Credential is a user plus the plain-text password it is seeded with.
type Credential struct {
	model.User
	Password string
}

// DemoCredentials are the two accounts the clinic dashboard ships with.
var DemoCredentials = []Credential{
	{
		User: model.User{
			ID:    "1",
			Email: "admin@entnt.in",
			Role:  model.RoleAdmin,
			Name:  "Dr. Smith",
		},
		Password: "admin123",
	},
	{
		User: model.User{
			ID:        "2",
			Email:     "john@entnt.in",
			Role:      model.RolePatient,
			Name:      "John Doe",
			PatientID: "p1",
		},
		Password: "patient123",
	},
}

type entry struct {
	user model.User
	hash string
}

type Store struct {
	hasher  security.PasswordHasher
	entries []entry
	// dummy is compared against when the email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummy string
}

func NewStore(hasher security.PasswordHasher, creds []Credential) (*Store, error) {
	s := &Store{hasher: hasher, entries: make([]entry, 0, len(creds))}
	for _, c := range creds {
		hash, err := hasher.Hash(c.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", c.Email, err)
		}
		s.entries = append(s.entries, entry{user: c.User, hash: hash})
	}

	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}
	s.dummy = dummy
	return s, nil
}

func NewDemoStore(hasher security.PasswordHasher) (*Store, error) {
	return NewStore(hasher, DemoCredentials)
}

// Authenticate matches the email case-insensitively and the password
// exactly. Unknown email and wrong password both return
// errors.ErrInvalidCredentials.
func (s *Store) Authenticate(email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	for _, e := range s.entries {
		if strings.EqualFold(e.user.Email, email) {
			if err := s.hasher.Compare(e.hash, password); err != nil {
				return model.User{}, errors.ErrInvalidCredentials
			}
			return e.user, nil
		}
	}
	_ = s.hasher.Compare(s.dummy, password)
	return model.User{}, errors.ErrInvalidCredentials
}

// Users lists the known users without credentials.
func (s *Store) Users() []model.User {
	users := make([]model.User, len(s.entries))
	for i, e := range s.entries {
		users[i] = e.user
	}
	return users
}

func (s *Store) Lookup(id string) (model.User, bool) {
	for _, e := range s.entries {
		if e.user.ID == id {
			return e.user, true
		}
	}
	return model.User{}, false
}
