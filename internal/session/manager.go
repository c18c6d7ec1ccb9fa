// Package session owns the single global login session: authentication,
// persistence, role predicates and the expiry timer.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/validator"
)

const (
	KeyUser   = "dental_user"
	KeyExpiry = "dental_session_expiry"
)

var ErrNoSession = stderrors.New("no active session")

type Config struct {
	TTL         time.Duration `mapstructure:"ttl"`
	RememberTTL time.Duration `mapstructure:"remember_ttl"`
	LoginDelay  time.Duration `mapstructure:"login_delay"`
}

func DefaultConfig() Config {
	return Config{
		TTL:         8 * time.Hour,
		RememberTTL: 24 * time.Hour,
		LoginDelay:  time.Second,
	}
}

// Authenticator checks a credential pair.
type Authenticator interface {
	Authenticate(email, password string) (model.User, error)
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

type Manager struct {
	cfg       Config
	auth      Authenticator
	store     kvstore.Store
	notifier  Notifier
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	validator validator.Validator
	now       func() time.Time

	mu         sync.Mutex
	current    *model.Session
	timer      *time.Timer
	generation uint64
	closed     bool
}

func NewManager(cfg Config, auth Authenticator, store kvstore.Store, opts ...Option) *Manager {
	m := &Manager{
		cfg:       cfg,
		auth:      auth,
		store:     store,
		logger:    zerolog.Nop(),
		validator: validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = NewLogNotifier(m.logger)
	}
	return m
}

// Login waits the configured delay, authenticates and replaces any current
// session. A cancelled ctx aborts the login without touching state.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) (*model.Session, error) {
	if err := m.wait(ctx); err != nil {
		m.recordLogin("cancelled")
		return nil, err
	}

	user, err := m.auth.Authenticate(email, password)
	if err != nil {
		m.recordLogin("failure")
		m.logger.Warn().Str("email", email).Msg("login rejected")
		return nil, err
	}

	ttl := m.cfg.TTL
	if rememberMe {
		ttl = m.cfg.RememberTTL
	}
	now := m.now()
	sess := &model.Session{
		User:      user,
		LoginTime: now.UnixMilli(),
		SessionID: uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		m.recordLogin("cancelled")
		return nil, err
	}
	if m.current != nil {
		m.logger.Info().
			Str("previous_user_id", m.current.ID).
			Str("user_id", user.ID).
			Msg("replacing active session")
	}
	if err := m.persist(ctx, sess, true); err != nil {
		return nil, err
	}

	m.current = sess
	m.arm(sess.ExpiresAt)
	m.recordLogin("success")
	m.setActive(true)

	m.logger.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Time("expires_at", sess.ExpiresAt).
		Msg("session started")
	return sess.Clone(), nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.cfg.LoginDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.cfg.LoginDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Logout clears the in-memory and persisted session. Calling it without a
// session is a no-op apart from removing any stray persisted keys.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.logger.Info().Str("user_id", m.current.ID).Msg("session ended")
	}
	return m.clear(ctx)
}

// LogoutSession ends the current session only if it carries sessionID. A
// token from a replaced session cannot end its successor; in that case the
// call is a no-op and ended is false.
func (m *Manager) LogoutSession(ctx context.Context, sessionID string) (ended bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.SessionID != sessionID {
		m.logger.Warn().Str("user_id", m.current.ID).Msg("ignoring logout for a replaced session")
		return false, nil
	}
	if m.current != nil {
		m.logger.Info().Str("user_id", m.current.ID).Msg("session ended")
		ended = true
	}
	return ended, m.clear(ctx)
}

// Restore loads a persisted session. Expired or unreadable state is
// discarded and leaves the manager logged out; only backend failures are
// returned.
func (m *Manager) Restore(ctx context.Context) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rawUser, err := m.store.Get(ctx, KeyUser)
	if stderrors.Is(err, kvstore.ErrNotFound) {
		return nil, m.clear(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	rawExpiry, err := m.store.Get(ctx, KeyExpiry)
	if err != nil && !stderrors.Is(err, kvstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to read session expiry: %w", err)
	}

	sess, perr := decodeSession(rawUser, rawExpiry, err == nil)
	if perr != nil {
		m.logger.Warn().Err(perr).Msg("discarding persisted session")
		return nil, m.clear(ctx)
	}

	if !sess.ExpiresAt.After(m.now()) {
		m.logger.Info().Str("user_id", sess.ID).Msg("persisted session expired")
		return nil, m.clear(ctx)
	}

	m.current = sess
	m.arm(sess.ExpiresAt)
	m.setActive(true)
	m.logger.Info().Str("user_id", sess.ID).Time("expires_at", sess.ExpiresAt).Msg("session restored")
	return sess.Clone(), nil
}

func decodeSession(rawUser, rawExpiry []byte, hasExpiry bool) (*model.Session, error) {
	if !hasExpiry {
		return nil, errors.NewCorruptStoredState(KeyExpiry, kvstore.ErrNotFound)
	}
	var sess model.Session
	if err := json.Unmarshal(rawUser, &sess); err != nil {
		return nil, errors.NewCorruptStoredState(KeyUser, err)
	}
	if sess.ID == "" || sess.Role == "" {
		return nil, errors.NewCorruptStoredState(KeyUser, fmt.Errorf("missing identity"))
	}
	ms, err := strconv.ParseInt(string(rawExpiry), 10, 64)
	if err != nil {
		return nil, errors.NewCorruptStoredState(KeyExpiry, err)
	}
	sess.ExpiresAt = time.UnixMilli(ms)
	return &sess, nil
}

// Update merges the patch into the current session and persists it.
func (m *Manager) Update(ctx context.Context, patch model.SessionPatch) (*model.Session, error) {
	if err := m.validator.Validate(patch); err != nil {
		return nil, errors.NewBadRequest(err.Error(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeLocked() == nil {
		return nil, ErrNoSession
	}
	next := m.current.Clone()
	patch.Apply(next)
	if err := m.persist(ctx, next, false); err != nil {
		return nil, err
	}
	m.current = next
	return next.Clone(), nil
}

// Current returns a copy of the active session or nil.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked().Clone()
}

// Validate returns the active session if it carries sessionID.
func (m *Manager) Validate(sessionID string) (*model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.activeLocked()
	if sess == nil || sessionID == "" || sess.SessionID != sessionID {
		return nil, false
	}
	return sess.Clone(), true
}

func (m *Manager) IsAdmin() bool {
	return m.Current().IsAdmin()
}

func (m *Manager) IsPatient() bool {
	return m.Current().IsPatient()
}

// TimeRemaining reports max(0, expiry-now); ok is false without a session.
func (m *Manager) TimeRemaining() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, false
	}
	d := m.current.ExpiresAt.Sub(m.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// Close stops the expiry timer. The persisted session is left in place.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.disarm()
	return nil
}

// activeLocked hides a session whose expiry passed before the timer ran.
func (m *Manager) activeLocked() *model.Session {
	if m.current == nil || !m.current.ExpiresAt.After(m.now()) {
		return nil
	}
	return m.current
}

func (m *Manager) persist(ctx context.Context, sess *model.Session, withExpiry bool) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.store.Set(ctx, KeyUser, body); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	if withExpiry {
		expiry := strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10)
		if err := m.store.Set(ctx, KeyExpiry, []byte(expiry)); err != nil {
			// The user key now names a session whose expiry never landed.
			if derr := m.store.Delete(ctx, KeyUser); derr != nil && !stderrors.Is(derr, kvstore.ErrNotFound) {
				m.logger.Error().Err(derr).Msg("failed to roll back persisted session")
			}
			return fmt.Errorf("failed to persist session expiry: %w", err)
		}
	}
	return nil
}

// clear must be called with mu held.
func (m *Manager) clear(ctx context.Context) error {
	m.disarm()
	m.current = nil
	m.setActive(false)

	var errs []error
	for _, key := range []string{KeyUser, KeyExpiry} {
		if err := m.store.Delete(ctx, key); err != nil && !stderrors.Is(err, kvstore.ErrNotFound) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return stderrors.Join(errs...)
}

// arm replaces the expiry timer. Must be called with mu held.
func (m *Manager) arm(expiresAt time.Time) {
	m.disarm()
	if m.closed {
		return
	}
	gen := m.generation
	d := expiresAt.Sub(m.now())
	if d < 0 {
		d = 0
	}
	m.timer = time.AfterFunc(d, func() { m.expire(gen) })
}

// disarm stops the timer and invalidates any callback already in flight.
func (m *Manager) disarm() {
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) expire(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.mu.Lock()
	if m.closed || gen != m.generation || m.current == nil {
		m.mu.Unlock()
		return
	}
	sess := m.current
	if err := m.clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear expired session")
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionExpirations.Inc()
	}
	m.logger.Info().Str("user_id", sess.ID).Msg("session expired")

	notice := Notice{
		Kind:    NoticeSessionExpired,
		Message: ExpiredMessage,
		UserID:  sess.ID,
		Email:   sess.Email,
		At:      m.now(),
	}
	if err := m.notifier.Notify(ctx, notice); err != nil {
		m.logger.Warn().Err(err).Msg("failed to deliver expiry notice")
	}
}

func (m *Manager) recordLogin(result string) {
	if m.metrics != nil {
		m.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

func (m *Manager) setActive(active bool) {
	if m.metrics == nil {
		return
	}
	if active {
		m.metrics.ActiveSession.Set(1)
	} else {
		m.metrics.ActiveSession.Set(0)
	}
}
