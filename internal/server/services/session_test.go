package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/config"
)

func TestLogout_DeactivatesExactlyThePresentedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	first, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	second, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	require.NoError(t, env.session.Logout(ctx, first.SessionToken, bob.ID))

	_, err = env.auth.Authenticate(ctx, first.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	// The other device stays logged in.
	user, err := env.auth.Authenticate(ctx, second.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)
}

// A caller authenticated via a signed token has no persistent token to
// present, so logout falls back to the most recently used live session.
func TestLogout_SignedTokenFallsBackToMostRecentSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	older, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	newer, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	require.NoError(t, env.session.Logout(ctx, newer.SignedToken, bob.ID))

	_, err = env.auth.Authenticate(ctx, newer.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	user, err := env.auth.Authenticate(ctx, older.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.UserName)
}

func TestLogout_NoSessionsLeftIsStillSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	require.NoError(t, env.session.RevokeAllForUser(ctx, bob.ID))

	assert.NoError(t, env.session.Logout(ctx, res.SignedToken, bob.ID))
}

func TestRevokeAllForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	first, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	second, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	require.NoError(t, env.session.RevokeAllForUser(ctx, bob.ID))

	_, err = env.auth.Authenticate(ctx, first.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
	_, err = env.auth.Authenticate(ctx, second.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)
}

func TestRevokeOwn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")
	eve := env.register(t, "eve", "pw")

	res, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	sessions, err := env.session.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	tokenID := sessions[0].ID

	// Someone else's token id reads as not found, not forbidden.
	assert.ErrorIs(t, env.session.RevokeOwn(ctx, tokenID, eve.ID), common.ErrorNotFound)

	require.NoError(t, env.session.RevokeOwn(ctx, tokenID, bob.ID))

	_, err = env.auth.Authenticate(ctx, res.SessionToken)
	assert.ErrorIs(t, err, common.ErrorUnauthenticated)

	// Revoking an already-inactive token reports not found, never a silent
	// success.
	assert.ErrorIs(t, env.session.RevokeOwn(ctx, tokenID, bob.ID), common.ErrorNotFound)
}

func TestRevokeAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	_, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	sessions, err := env.session.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, env.session.RevokeAdmin(ctx, sessions[0].ID))
	assert.ErrorIs(t, env.session.RevokeAdmin(ctx, sessions[0].ID), common.ErrorNotFound)
	assert.ErrorIs(t, env.session.RevokeAdmin(ctx, "no-such-id"), common.ErrorNotFound)
}

func TestListSessions_OrderedByRecency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	older, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = env.auth.Authenticate(ctx, older.SessionToken)
	require.NoError(t, err)

	sessions, err := env.session.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, older.SessionToken, sessions[0].Token, "touched session must sort first")
	assert.True(t, sessions[0].LastUsedAt.After(sessions[1].LastUsedAt))
}

func TestListSessions_SweepsExpiredFirst(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.SessionTokenValidityDuration = 30 * time.Millisecond
	})
	ctx := context.Background()
	bob := env.register(t, "bob", "pw")

	_, err := env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	sessions, err := env.session.ListSessions(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestListOnlineUsers_TwoUsersTwoDevicesEach(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	env.register(t, "bob", "pw")

	for _, name := range []string{"alice", "bob"} {
		_, err := env.auth.Login(ctx, name, "pw", env.meta())
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
		_, err = env.auth.Login(ctx, name, "pw", ClientMeta{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			IPAddress: "198.51.100.1",
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	online, err := env.session.ListOnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)

	// bob logged in last, so he sorts first.
	assert.Equal(t, "bob", online[0].User.UserName)
	assert.Equal(t, "alice", online[1].User.UserName)

	for _, entry := range online {
		require.Len(t, entry.Sessions, 2)
		assert.True(t, !entry.Sessions[0].LastUsedAt.Before(entry.Sessions[1].LastUsedAt))
		assert.Equal(t, "Firefox on Linux", entry.Sessions[0].DeviceInfo)
		assert.Equal(t, "Chrome on Windows", entry.Sessions[1].DeviceInfo)
	}
}

func TestListOnlineUsers_ExcludesLoggedOutUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "pw")
	bob := env.register(t, "bob", "pw")

	_, err := env.auth.Login(ctx, "alice", "pw", env.meta())
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "bob", "pw", env.meta())
	require.NoError(t, err)

	require.NoError(t, env.session.RevokeAllForUser(ctx, bob.ID))

	online, err := env.session.ListOnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "alice", online[0].User.UserName)
}
