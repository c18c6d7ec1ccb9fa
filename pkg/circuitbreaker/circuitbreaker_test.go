package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(Settings{Name: "test", MaxFailures: 2, Timeout: time.Minute})
	cb.now = func() time.Time { return now }

	fail := func() error { return errBoom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	// probe fails and reopens
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{MaxFailures: 2, Timeout: time.Minute})

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, StateClosed, cb.State())
}
