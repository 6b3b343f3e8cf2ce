package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletwise/walletwise/internal/apperr"
)

func TestLockoutGuard_LocksOnFifthFailure(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	// Four failures stay below the threshold and report remaining attempts.
	for i := 1; i <= 4; i++ {
		_, _, err := env.service.Login("ana@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Contains(t, err.Error(), fmt.Sprintf("%d attempts remaining", 5-i))
	}

	// The fifth failure locks.
	_, _, err := env.service.Login("ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrAccountLocked)

	user, err := env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, user.Status)
	assert.Equal(t, 5, user.FailedLoginCount)
	assert.NotNil(t, user.LockedAt)

	// A sixth attempt with the CORRECT password is still rejected and the
	// counter does not move.
	_, _, err = env.service.Login("ana@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrAccountLocked)

	user, err = env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, user.FailedLoginCount)
	assert.Equal(t, StatusLocked, user.Status)
}

func TestLockoutGuard_SuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	// Four failures, then a success.
	for i := 0; i < 4; i++ {
		_, _, err := env.service.Login("ana@example.com", "wrong-password")
		require.Error(t, err)
	}
	_, _, err := env.service.Login("ana@example.com", "hunter22")
	require.NoError(t, err)

	user, err := env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Zero(t, user.FailedLoginCount)
	assert.NotNil(t, user.LastLoginAt)

	// Four more failures do not lock; the fifth after the reset does.
	for i := 0; i < 4; i++ {
		_, _, err := env.service.Login("ana@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, _, err = env.service.Login("ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLockoutGuard_LockedMessageNamesSupport(t *testing.T) {
	env := newTestEnv(t)
	registerTestUser(t, env, "ana@example.com")

	for i := 0; i < 5; i++ {
		_, _, _ = env.service.Login("ana@example.com", "wrong-password")
	}

	_, _, err := env.service.Login("ana@example.com", "hunter22")
	require.ErrorIs(t, err, ErrAccountLocked)
	assert.Contains(t, err.Error(), "support@walletwise.app")
}

func TestLockoutGuard_UnknownUserGetsGenericError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.lockout.Attempt("ghost@example.com", "whatever")
	require.Error(t, err)
	// No existence leak: plain invalid credentials, same kind as a wrong
	// password, without a remaining-attempts hint.
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	assert.NotContains(t, err.Error(), "remaining")
}

func TestLockoutGuard_Unblock(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	for i := 0; i < 5; i++ {
		_, _, _ = env.service.Login("ana@example.com", "wrong-password")
	}

	require.NoError(t, env.service.lockout.Unblock(ana.ID))

	user, err := env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
	assert.Zero(t, user.FailedLoginCount)
	assert.Nil(t, user.LockedAt)

	assert.ErrorIs(t, env.service.lockout.Unblock(999), ErrUserNotFound)
}
