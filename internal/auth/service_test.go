package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletwise/walletwise/internal/apperr"
)

func TestService_Register(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		phone    string
		password string
		setup    func(*testEnv)
		wantErr  error
	}{
		{
			name:     "successful registration",
			userName: "Ana Souza",
			email:    "ana@example.com",
			phone:    "+5511999990001",
			password: "hunter22",
		},
		{
			name:     "duplicate email",
			userName: "Ana Clone",
			email:    "ana@example.com",
			phone:    "+5511999990002",
			password: "hunter22",
			setup: func(env *testEnv) {
				_, _, err := env.service.Register("Ana Souza", "ana@example.com", "+5511999990001", "hunter22")
				require.NoError(t, err)
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name:     "duplicate email different case",
			userName: "Ana Clone",
			email:    "ANA@Example.com",
			phone:    "+5511999990002",
			password: "hunter22",
			setup: func(env *testEnv) {
				_, _, err := env.service.Register("Ana Souza", "ana@example.com", "+5511999990001", "hunter22")
				require.NoError(t, err)
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name:     "duplicate phone",
			userName: "Bob Lima",
			email:    "bob@example.com",
			phone:    "+5511999990001",
			password: "hunter22",
			setup: func(env *testEnv) {
				_, _, err := env.service.Register("Ana Souza", "ana@example.com", "+5511999990001", "hunter22")
				require.NoError(t, err)
			},
			wantErr: ErrDuplicatePhone,
		},
		{
			name:     "missing name",
			email:    "ana@example.com",
			phone:    "+5511999990001",
			password: "hunter22",
			wantErr:  apperr.New(apperr.KindValidation, ""),
		},
		{
			name:     "invalid email",
			userName: "Ana Souza",
			email:    "not-an-email",
			phone:    "+5511999990001",
			password: "hunter22",
			wantErr:  apperr.New(apperr.KindValidation, ""),
		},
		{
			name:     "short password",
			userName: "Ana Souza",
			email:    "ana@example.com",
			phone:    "+5511999990001",
			password: "12345",
			wantErr:  apperr.New(apperr.KindValidation, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}

			user, token, err := env.service.Register(tt.userName, tt.email, tt.phone, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, StatusActive, user.Status)
			assert.Equal(t, RoleUser, user.Role)
			assert.Equal(t, SubscriptionPending, user.SubscriptionStatus)
			assert.Zero(t, user.FailedLoginCount)

			// The issued token round-trips through the issuer.
			claims, err := env.tokens.Parse(token)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, user.Email, claims.Email)
		})
	}
}

func TestService_Login(t *testing.T) {
	env := newTestEnv(t)
	registerTestUser(t, env, "ana@example.com")

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{
			name:       "login by email",
			identifier: "ana@example.com",
			password:   "hunter22",
		},
		{
			name:       "login by phone",
			identifier: "+5511ana@",
			password:   "hunter22",
		},
		{
			name:       "wrong password",
			identifier: "ana@example.com",
			password:   "wrong-password",
			wantErr:    ErrInvalidCredentials,
		},
		{
			name:       "unknown identifier",
			identifier: "ghost@example.com",
			password:   "hunter22",
			wantErr:    ErrInvalidCredentials,
		},
		{
			name:       "missing fields",
			identifier: "",
			password:   "",
			wantErr:    apperr.New(apperr.KindValidation, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, token, err := env.service.Login(tt.identifier, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.NotNil(t, user.LastLoginAt)
		})
	}
}

func TestService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")
	registerTestUser(t, env, "bob@example.com")

	newName := "Ana Maria Souza"
	updated, err := env.service.UpdateProfile(ana.ID, ProfileUpdate{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, ana.Email, updated.Email)

	// Taking bob's email must fail with a duplicate error.
	bobEmail := "bob@example.com"
	_, err = env.service.UpdateProfile(ana.ID, ProfileUpdate{Email: &bobEmail})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	badEmail := "nope"
	_, err = env.service.UpdateProfile(ana.ID, ProfileUpdate{Email: &badEmail})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	// Wrong current password is rejected.
	err := env.service.ChangePassword(ana.ID, "wrong", "newpassword1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Too-short replacement is rejected.
	err = env.service.ChangePassword(ana.ID, "hunter22", "short")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = env.service.ChangePassword(ana.ID, "hunter22", "newpassword1")
	require.NoError(t, err)

	_, _, err = env.service.Login("ana@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.service.Login("ana@example.com", "newpassword1")
	assert.NoError(t, err)
}

func TestService_Unblock(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	// Lock the account through failed attempts.
	for i := 0; i < 5; i++ {
		_, _, err := env.service.Login("ana@example.com", "wrong-password")
		assert.Error(t, err)
	}
	locked, err := env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLocked, locked.Status)

	adminClaims := &Claims{UserID: 99, Role: RoleAdmin}
	userClaims := &Claims{UserID: 98, Role: RoleUser}

	// Non-admins are refused.
	err = env.service.Unblock(userClaims, ana.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// Unknown target is a not-found, not a silent success.
	err = env.service.Unblock(adminClaims, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.service.Unblock(adminClaims, ana.ID)
	require.NoError(t, err)

	unlocked, err := env.repo.GetUserByID(ana.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, unlocked.Status)
	assert.Zero(t, unlocked.FailedLoginCount)
	assert.Nil(t, unlocked.LockedAt)

	// And the user can log in again.
	_, _, err = env.service.Login("ana@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestService_DeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ana := registerTestUser(t, env, "ana@example.com")

	require.NoError(t, env.service.ForgotPassword("ana@example.com"))
	token := env.mailer.lastResetToken(t)

	require.NoError(t, env.service.DeleteAccount(ana.ID))

	_, err := env.repo.GetUserByID(ana.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// Owned reset tokens are cascaded away.
	_, err = env.repo.GetResetToken(token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
