package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/logging"
	"github.com/navhub/navhub/internal/server/auth"
	"github.com/navhub/navhub/internal/server/config"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/repositories/repomanager"
)

type testEnv struct {
	rm      *repomanager.InMemoryRepositoryManager
	auth    *AuthService
	session *SessionService
	users   *UserService
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		SessionTokenValidityDuration: time.Hour,
		SignedTokenValidityDuration:  time.Hour,
		BcryptCost:                   bcrypt.MinCost,
	}
	for _, m := range mutate {
		m(cfg)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rm := repomanager.NewInMemoryRepositoryManager()

	return &testEnv{
		rm:      rm,
		auth:    NewAuthService(nil, rm, cfg, logger),
		session: NewSessionService(nil, rm, logger),
		users:   NewUserService(nil, rm, cfg, logger),
	}
}

func (e *testEnv) register(t *testing.T, userName, password string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), userName, userName+"@example.com", password)
	require.NoError(t, err)
	return u
}

func (e *testEnv) meta() ClientMeta {
	return ClientMeta{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36",
		IPAddress: "203.0.113.7",
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionToken)
	assert.NotEmpty(t, res.SignedToken)
	assert.Equal(t, "Chrome on Windows", res.DeviceInfo)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	user, err := env.auth.Authenticate(ctx, res.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)

	user, err = env.auth.Authenticate(ctx, res.SignedToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)
}

func TestLogin_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Login(context.Background(), "ghost", "pw", env.meta())
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)

	var ice *InvalidCredentialsError
	assert.False(t, errors.As(err, &ice), "unknown users must not get attempt counters")
}

func TestLogin_WrongPasswordCountsDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw")

	for want := 4; want >= 2; want-- {
		_, err := env.auth.Login(ctx, "bob", "nope", env.meta())

		var ice *InvalidCredentialsError
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, want, ice.RemainingAttempts)
		assert.False(t, ice.JustLocked)
	}
}

func TestLogin_LocksAfterFiveFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw")

	var last error
	for i := 0; i < 5; i++ {
		_, last = env.auth.Login(ctx, "bob", "nope", env.meta())
	}

	var ice *InvalidCredentialsError
	require.ErrorAs(t, last, &ice)
	assert.Equal(t, 0, ice.RemainingAttempts)
	assert.True(t, ice.JustLocked)

	// Correct password is refused while the window holds.
	_, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.ErrorIs(t, err, common.ErrorAccountLocked)
	assert.InDelta(t, 60, locked.RetryAfterMinutes, 1)
}

// Scenario from the lockout policy: alice with 4 prior failures. One more
// wrong password exhausts the budget and locks; the correct password
// immediately after is refused for about an hour.
func TestLogin_FourPriorFailuresScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", "correct")

	repo := env.rm.Users(nil)
	for i := 0; i < 4; i++ {
		_, err := repo.IncrementFailedAttempts(ctx, alice.ID, time.Now())
		require.NoError(t, err)
	}

	_, err := env.auth.Login(ctx, "alice", "wrong", env.meta())
	var ice *InvalidCredentialsError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 0, ice.RemainingAttempts)
	assert.True(t, ice.JustLocked)

	_, err = env.auth.Login(ctx, "alice", "correct", env.meta())
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.InDelta(t, 60, locked.RetryAfterMinutes, 1)
}

func TestLogin_SuccessResetsLockState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	for i := 0; i < 3; i++ {
		_, _ = env.auth.Login(ctx, "bob", "nope", env.meta())
	}

	_, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	stored, err := env.rm.Users(nil).GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_AutoUnlockAfterElapsedWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	repo := env.rm.Users(nil)
	for i := 0; i < 5; i++ {
		_, err := repo.IncrementFailedAttempts(ctx, bob.ID, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, repo.LockUntil(ctx, bob.ID, time.Now().Add(-time.Minute)))

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionToken)

	stored, err := repo.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestLogin_InactiveUserRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	bob.IsActive = false
	require.NoError(t, env.rm.Users(nil).Update(ctx, bob))

	_, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

// Concurrent failures against one account: every refused password advances
// the counter by exactly one (no lost updates) and the account locks at
// most once. Attempts arriving after the lock has landed are refused at the
// gate and do not touch the counter.
func TestLogin_ConcurrentFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.auth.Login(ctx, "bob", "nope", env.meta())
		}(i)
	}
	wg.Wait()

	var invalid, lockedOut int
	for _, err := range errs {
		switch {
		case errors.Is(err, common.ErrorInvalidCredentials):
			invalid++
		case errors.Is(err, common.ErrorAccountLocked):
			lockedOut++
		default:
			t.Fatalf("unexpected outcome: %v", err)
		}
	}
	assert.Equal(t, n, invalid+lockedOut)
	assert.GreaterOrEqual(t, invalid, auth.MaxFailedAttempts)

	stored, err := env.rm.Users(nil).GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, invalid, stored.FailedAttempts, "each refused password must advance the counter exactly once")
	require.NotNil(t, stored.LockedUntil)
	assert.True(t, stored.LockedUntil.After(time.Now().Add(50*time.Minute)))
}

func TestAuthenticate_RejectsGarbageAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	_, err = env.auth.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestAuthenticate_RevocationBeatsSignedToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	require.NoError(t, env.session.RevokeAllForUser(ctx, bob.ID))

	// The persistent token is dead immediately.
	_, err = env.auth.Authenticate(ctx, res.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	// The signed token stays valid until expiry: stateless by design.
	user, err := env.auth.Authenticate(ctx, res.SignedToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)
}

func TestAuthenticate_ExpiredSignedTokenRejected(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.SignedTokenValidityDuration = -time.Minute
	})
	ctx := context.Background()
	env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	_, err = env.auth.Authenticate(ctx, res.SignedToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestAuthenticate_ExpiredSessionTokenRejected(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.SessionTokenValidityDuration = 30 * time.Millisecond
	})
	ctx := context.Background()
	env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	_, err = env.auth.Authenticate(ctx, res.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestAuthenticate_TouchAdvancesLastUsed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	before, err := env.rm.Sessions(nil).FindActive(ctx, res.SessionToken, time.Now())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = env.auth.Authenticate(ctx, res.SessionToken)
	require.NoError(t, err)

	sessions, err := env.session.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].LastUsedAt.After(before.LastUsedAt))
}

func TestAuthenticate_InactiveUserRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	bob.IsActive = false
	require.NoError(t, env.rm.Users(nil).Update(ctx, bob))

	_, err = env.auth.Authenticate(ctx, res.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	_, err = env.auth.Authenticate(ctx, res.SignedToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestAuthenticateOptional(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw")

	user, err := env.auth.AuthenticateOptional(ctx, "garbage")
	require.NoError(t, err)
	assert.Nil(t, user)

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	user, err = env.auth.AuthenticateOptional(ctx, res.SessionToken)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "bob", user.UserName)
}
