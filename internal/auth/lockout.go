package auth

import (
	"time"

	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/config"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindInvalidCredentials, "invalid credentials")
	ErrAccountLocked      = apperr.New(apperr.KindAccountLocked, "account locked")
	ErrForbidden          = apperr.New(apperr.KindForbidden, "admin role required")
)

// Mailer is the outbound email surface the auth package needs. Sends are
// side effects with a boolean outcome; the notification package implements
// this over SMTP.
type Mailer interface {
	SendPasswordReset(email, name, resetURL string) error
	SendAccountLocked(email, name, supportContact string) error
}

// LockoutGuard wraps authentication attempts with the failed-attempt counter
// and the blocking threshold.
type LockoutGuard struct {
	config         *config.AuthConfig
	log            *zap.Logger
	repository     Repository
	mailer         Mailer
	supportContact string
}

func NewLockoutGuard(config *config.AuthConfig, log *zap.Logger, repo Repository, mailer Mailer, supportContact string) *LockoutGuard {
	return &LockoutGuard{
		config:         config,
		log:            log,
		repository:     repo,
		mailer:         mailer,
		supportContact: supportContact,
	}
}

// Attempt runs one authentication attempt against the stored credentials.
// A locked account short-circuits before the password comparison and never
// advances the counter. A wrong password increments the counter atomically
// and locks the account when the threshold is reached. A correct password
// resets the counter and stamps the login time.
func (g *LockoutGuard) Attempt(identifier, password string) (*User, error) {
	user, err := g.repository.GetUserByIdentifier(identifier)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			HashPassword("dummy") // Prevent timing attacks
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.IsLocked() {
		return nil, g.lockedError()
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		count, err := g.repository.IncrementFailedLogins(user.ID)
		if err != nil {
			g.log.Error("failed to update login attempts", zap.Error(err))
			return nil, ErrInvalidCredentials
		}

		if count >= g.config.LockoutThreshold {
			now := time.Now()
			if err := g.repository.LockUser(user.ID, now); err != nil {
				g.log.Error("failed to lock account", zap.Error(err))
			}
			g.notifyLocked(user)
			return nil, g.lockedError()
		}

		remaining := g.config.LockoutThreshold - count
		return nil, apperr.Newf(apperr.KindInvalidCredentials,
			"invalid credentials, %d attempts remaining before lockout", remaining)
	}

	now := time.Now()
	if err := g.repository.ResetFailedLogins(user.ID, now); err != nil {
		g.log.Error("failed to reset login attempts", zap.Error(err))
	}
	user.FailedLoginCount = 0
	user.LastLoginAt = &now

	return user, nil
}

// Unblock resets the counter, status and lockout timestamp. Role enforcement
// happens at the service layer.
func (g *LockoutGuard) Unblock(userID uint) error {
	if _, err := g.repository.GetUserByID(userID); err != nil {
		return err
	}
	return g.repository.UnlockUser(userID)
}

func (g *LockoutGuard) lockedError() error {
	return apperr.Newf(apperr.KindAccountLocked,
		"account locked due to too many failed login attempts, contact support at %s", g.supportContact)
}

// notifyLocked is best-effort: a failed send is logged and never rolls back
// the lock, and the send must not delay the response.
func (g *LockoutGuard) notifyLocked(user *User) {
	if g.mailer == nil {
		return
	}
	email, name := user.Email, user.Name
	go func() {
		if err := g.mailer.SendAccountLocked(email, name, g.supportContact); err != nil {
			g.log.Error("failed to send account locked notification",
				zap.String("email", email),
				zap.Error(err))
		}
	}()
}
