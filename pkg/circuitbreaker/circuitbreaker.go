package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling fn while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

type Settings struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures int
	// Timeout is how long the breaker stays open before letting one call through.
	Timeout time.Duration
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:        name,
		MaxFailures: 5,
		Timeout:     30 * time.Second,
	}
}

type CircuitBreaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	now         func() time.Time

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       State
	probing     bool
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 1
	}
	return &CircuitBreaker{
		name:        settings.Name,
		maxFailures: settings.MaxFailures,
		timeout:     settings.Timeout,
		now:         time.Now,
		state:       StateClosed,
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn unless the breaker is open. Once the timeout has passed a
// single probe call is let through; its result closes or reopens the breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.timeout {
			return ErrOpen
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
		return
	}
	cb.failures = 0
	cb.state = StateClosed
}
