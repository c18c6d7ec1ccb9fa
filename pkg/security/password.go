package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed    = errors.New("password hashing failed")
	ErrPasswordTooShort = errors.New("password too short")
)

// MinPasswordLen admits the demo credentials ("admin123", "patient123").
const MinPasswordLen = 6

// PasswordHasher hashes the credential store's passwords at startup and
// checks login attempts against them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is out of range.
// Tests pass bcrypt.MinCost to keep login fast.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, MinPasswordLen)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}
	return string(hashed), nil
}

// Compare returns bcrypt.ErrMismatchedHashAndPassword on a wrong password.
func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
