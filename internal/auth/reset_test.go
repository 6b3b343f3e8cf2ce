package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletwise/walletwise/internal/apperr"
)

func TestResetService_RequestReset(t *testing.T) {
	env := newTestEnv(t)
	registerTestUser(t, env, "ana@example.com")

	// Known email: token is persisted and mailed.
	require.NoError(t, env.service.ForgotPassword("ana@example.com"))
	assert.Equal(t, 1, env.mailer.resetCount())

	token := env.mailer.lastResetToken(t)
	record, err := env.service.reset.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, record.Used)
	assert.True(t, record.ExpiresAt.After(time.Now()))

	// Unknown email: same nil result, no mail.
	require.NoError(t, env.service.ForgotPassword("ghost@example.com"))
	assert.Equal(t, 1, env.mailer.resetCount())
}

func TestResetService_SendFailureStaysGeneric(t *testing.T) {
	env := newTestEnv(t)
	registerTestUser(t, env, "ana@example.com")
	env.mailer.fail = true

	// A failed send must not change the outcome; the account's existence
	// stays unobservable.
	assert.NoError(t, env.service.ForgotPassword("ana@example.com"))
}

func TestResetService_TokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	require.NoError(t, env.service.ForgotPassword("ana@example.com"))
	token := env.mailer.lastResetToken(t)

	require.NoError(t, env.service.ResetPassword(token, "brand-new-pass"))

	// Old password no longer works, the new one does.
	_, _, err := env.service.Login("ana@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.service.Login("ana@example.com", "brand-new-pass")
	assert.NoError(t, err)

	// Second use of the same token is refused.
	err = env.service.ResetPassword(token, "another-pass")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// And the password did not change again.
	_, _, err = env.service.Login("ana@example.com", "brand-new-pass")
	assert.NoError(t, err)

	_ = ana
}

func TestResetService_TokenExpires(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	// Plant a well-formed but expired token.
	expired := &PasswordResetToken{
		UserID:    ana.ID,
		Token:     "expired-token-value",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, env.repo.CreateResetToken(expired))

	_, err := env.service.reset.ValidateToken("expired-token-value")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	err = env.service.ResetPassword("expired-token-value", "brand-new-pass")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestResetService_RejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)
	registerTestUser(t, env, "ana@example.com")

	require.NoError(t, env.service.ForgotPassword("ana@example.com"))
	token := env.mailer.lastResetToken(t)

	err := env.service.ResetPassword(token, "tiny")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// The failed attempt must not have burned the token.
	require.NoError(t, env.service.ResetPassword(token, "long-enough"))
}

func TestGenerateResetToken_Entropy(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := generateResetToken()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(token), 43) // 32 bytes base64url
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}
