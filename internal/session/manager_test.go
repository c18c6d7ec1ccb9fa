package session

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/credential"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/kvstore/memory"
	"github.com/jwalitptl/dental-api/pkg/security"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	mgr   *Manager
	store *memory.Store
	board *NoticeBoard
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	creds, err := credential.NewDemoStore(security.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)

	store := memory.New()
	board := NewNoticeBoard(0)
	opts = append([]Option{WithNotifier(board)}, opts...)
	mgr := NewManager(cfg, creds, store, opts...)
	t.Cleanup(func() { mgr.Close() })
	return &fixture{mgr: mgr, store: store, board: board}
}

func instantConfig() Config {
	cfg := DefaultConfig()
	cfg.LoginDelay = 0
	return cfg
}

func assertNoPersistedSession(t *testing.T, store kvstore.Store) {
	t.Helper()
	_, err := store.Get(context.Background(), KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	_, err = store.Get(context.Background(), KeyExpiry)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestLogin_ValidCredentials(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
	f := newFixture(t, instantConfig(), WithClock(clock.Now))

	for _, c := range credential.DemoCredentials {
		t.Run(c.Email, func(t *testing.T) {
			sess, err := f.mgr.Login(context.Background(), c.Email, c.Password, false)
			require.NoError(t, err)
			assert.Equal(t, c.Role, sess.Role)
			assert.Equal(t, clock.Now().UnixMilli(), sess.LoginTime)
			assert.Equal(t, clock.Now().Add(8*time.Hour), sess.ExpiresAt)
			assert.NotEmpty(t, sess.SessionID)

			raw, err := f.store.Get(context.Background(), KeyExpiry)
			require.NoError(t, err)
			assert.Equal(t, strconv.FormatInt(clock.Now().Add(8*time.Hour).UnixMilli(), 10), string(raw))

			raw, err = f.store.Get(context.Background(), KeyUser)
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"email":"`+c.Email+`"`)
			assert.Contains(t, string(raw), `"loginTime":`)
		})
	}
}

func TestLogin_RememberMe(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
	f := newFixture(t, instantConfig(), WithClock(clock.Now))

	sess, err := f.mgr.Login(context.Background(), "john@entnt.in", "patient123", true)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), sess.ExpiresAt)
	assert.True(t, f.mgr.IsPatient())
	assert.False(t, f.mgr.IsAdmin())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t, instantConfig())

	for _, pair := range [][2]string{
		{"admin@entnt.in", "wrong"},
		{"ghost@entnt.in", "admin123"},
	} {
		sess, err := f.mgr.Login(context.Background(), pair[0], pair[1], false)
		assert.Nil(t, sess)
		assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
	}

	assert.Nil(t, f.mgr.Current())
	assertNoPersistedSession(t, f.store)
}

func TestLogin_CancelledDuringDelay(t *testing.T) {
	cfg := instantConfig()
	f := newFixture(t, cfg)

	_, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)
	before := f.mgr.Current()

	f.mgr.cfg.LoginDelay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	sess, err := f.mgr.Login(ctx, "john@entnt.in", "patient123", false)
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, context.Canceled)

	after := f.mgr.Current()
	require.NotNil(t, after)
	assert.Equal(t, before.SessionID, after.SessionID)
	assert.True(t, f.mgr.IsAdmin())
}

func TestLogin_LastLoginWins(t *testing.T) {
	f := newFixture(t, instantConfig())

	first, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)
	second, err := f.mgr.Login(context.Background(), "john@entnt.in", "patient123", false)
	require.NoError(t, err)

	_, ok := f.mgr.Validate(first.SessionID)
	assert.False(t, ok)
	current, ok := f.mgr.Validate(second.SessionID)
	require.True(t, ok)
	assert.Equal(t, model.RolePatient, current.Role)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t, instantConfig())

	_, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Logout(context.Background()))
	assert.Nil(t, f.mgr.Current())
	assertNoPersistedSession(t, f.store)

	require.NoError(t, f.mgr.Logout(context.Background()))
	assert.Nil(t, f.mgr.Current())
	assertNoPersistedSession(t, f.store)

	_, ok := f.mgr.TimeRemaining()
	assert.False(t, ok)
}

func TestRestore(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	validUser := `{"id":"1","email":"admin@entnt.in","role":"Admin","name":"Dr. Smith","loginTime":1}`

	tests := []struct {
		name     string
		user     string
		expiry   string
		restored bool
	}{
		{"future expiry", validUser, strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10), true},
		{"past expiry", validUser, strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10), false},
		{"corrupt json", `{"id":`, strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10), false},
		{"corrupt expiry", validUser, "tomorrow", false},
		{"missing expiry", validUser, "", false},
		{"missing identity", `{"email":"x"}`, strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: now}
			f := newFixture(t, instantConfig(), WithClock(clock.Now))
			ctx := context.Background()

			require.NoError(t, f.store.Set(ctx, KeyUser, []byte(tt.user)))
			if tt.expiry != "" {
				require.NoError(t, f.store.Set(ctx, KeyExpiry, []byte(tt.expiry)))
			}

			sess, err := f.mgr.Restore(ctx)
			require.NoError(t, err)

			if tt.restored {
				require.NotNil(t, sess)
				assert.True(t, f.mgr.IsAdmin())
				remaining, ok := f.mgr.TimeRemaining()
				assert.True(t, ok)
				assert.Equal(t, time.Hour, remaining)
				return
			}
			assert.Nil(t, sess)
			assert.Nil(t, f.mgr.Current())
			assert.False(t, f.mgr.IsAdmin())
			assertNoPersistedSession(t, f.store)
		})
	}
}

func TestRestore_NothingPersisted(t *testing.T) {
	f := newFixture(t, instantConfig())

	sess, err := f.mgr.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, instantConfig())
	ctx := context.Background()

	name := "Dr. Jane Smith"
	_, err := f.mgr.Update(ctx, model.SessionPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = f.mgr.Login(ctx, "admin@entnt.in", "admin123", false)
	require.NoError(t, err)

	sess, err := f.mgr.Update(ctx, model.SessionPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, sess.Name)
	assert.Equal(t, "admin@entnt.in", sess.Email)

	raw, err := f.store.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.Contains(t, string(raw), name)

	empty := ""
	_, err = f.mgr.Update(ctx, model.SessionPatch{Name: &empty})
	assert.True(t, errors.HasCode(err, errors.ErrBadRequest))
}

func TestTimeRemaining(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
	f := newFixture(t, instantConfig(), WithClock(clock.Now))

	_, ok := f.mgr.TimeRemaining()
	assert.False(t, ok)

	_, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	remaining, ok := f.mgr.TimeRemaining()
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, remaining)
}

func TestExpiryTimer_LogsOutAndNotifies(t *testing.T) {
	cfg := instantConfig()
	cfg.TTL = 30 * time.Millisecond
	f := newFixture(t, cfg)

	_, err := f.mgr.Login(context.Background(), "john@entnt.in", "patient123", false)
	require.NoError(t, err)

	var notices []Notice
	require.Eventually(t, func() bool {
		notices = append(notices, f.board.Drain()...)
		return len(notices) > 0
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, ExpiredMessage, notices[0].Message)
	assert.Equal(t, "2", notices[0].UserID)
	assert.Nil(t, f.mgr.Current())
	assertNoPersistedSession(t, f.store)
}

func TestExpiryTimer_StaleTimerIgnored(t *testing.T) {
	cfg := instantConfig()
	cfg.TTL = 30 * time.Millisecond
	cfg.RememberTTL = time.Hour
	f := newFixture(t, cfg)

	_, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)
	second, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", true)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	current := f.mgr.Current()
	require.NotNil(t, current)
	assert.Equal(t, second.SessionID, current.SessionID)
	assert.Empty(t, f.board.Drain())
}

func TestClose_CancelsTimer(t *testing.T) {
	cfg := instantConfig()
	cfg.TTL = 30 * time.Millisecond
	f := newFixture(t, cfg)

	_, err := f.mgr.Login(context.Background(), "admin@entnt.in", "admin123", false)
	require.NoError(t, err)
	require.NoError(t, f.mgr.Close())

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.board.Drain())

	_, err = f.store.Get(context.Background(), KeyUser)
	assert.NoError(t, err)
}

func TestLogoutSession_OnlyEndsMatchingSession(t *testing.T) {
	f := newFixture(t, instantConfig())
	ctx := context.Background()

	first, err := f.mgr.Login(ctx, "john@entnt.in", "patient123", false)
	require.NoError(t, err)
	second, err := f.mgr.Login(ctx, "admin@entnt.in", "admin123", false)
	require.NoError(t, err)

	ended, err := f.mgr.LogoutSession(ctx, first.SessionID)
	require.NoError(t, err)
	assert.False(t, ended)
	assert.True(t, f.mgr.IsAdmin())

	ended, err = f.mgr.LogoutSession(ctx, second.SessionID)
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Nil(t, f.mgr.Current())
	assertNoPersistedSession(t, f.store)

	ended, err = f.mgr.LogoutSession(ctx, second.SessionID)
	require.NoError(t, err)
	assert.False(t, ended)
}

type failingSetStore struct {
	kvstore.Store
	failKey string
}

func (s *failingSetStore) Set(ctx context.Context, key string, value []byte) error {
	if key == s.failKey {
		return assert.AnError
	}
	return s.Store.Set(ctx, key, value)
}

func TestLogin_ExpiryWriteFailureLeavesNoPersistedUser(t *testing.T) {
	creds, err := credential.NewDemoStore(security.NewBcryptHasher(bcrypt.MinCost))
	require.NoError(t, err)
	ctx := context.Background()

	backing := memory.New()
	store := &failingSetStore{Store: backing}
	mgr := NewManager(instantConfig(), creds, store)
	t.Cleanup(func() { mgr.Close() })

	admin, err := mgr.Login(ctx, "admin@entnt.in", "admin123", false)
	require.NoError(t, err)

	store.failKey = KeyExpiry
	_, err = mgr.Login(ctx, "john@entnt.in", "patient123", false)
	require.ErrorIs(t, err, assert.AnError)

	current := mgr.Current()
	require.NotNil(t, current)
	assert.Equal(t, admin.SessionID, current.SessionID)

	_, err = backing.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	restarted := NewManager(instantConfig(), creds, backing)
	t.Cleanup(func() { restarted.Close() })
	restored, err := restarted.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, restored)
}
