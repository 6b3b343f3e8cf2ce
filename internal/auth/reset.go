package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/config"
)

// ResetMessage is the fixed forgot-password response. It is identical
// whether or not the email matches an account, so the endpoint cannot be
// used to enumerate users.
const ResetMessage = "If an account exists with that email, a password reset link has been sent"

// ResetService issues, validates and consumes single-use, time-limited
// password reset tokens.
type ResetService struct {
	config     *config.AuthConfig
	log        *zap.Logger
	repository Repository
	mailer     Mailer
	baseURL    string
}

func NewResetService(config *config.AuthConfig, log *zap.Logger, repo Repository, mailer Mailer, baseURL string) *ResetService {
	return &ResetService{
		config:     config,
		log:        log,
		repository: repo,
		mailer:     mailer,
		baseURL:    baseURL,
	}
}

// RequestReset creates a reset token for the account behind email and mails
// the reset link. Every outcome, including an unknown email or a failed
// send, yields the same nil result; failures are only logged.
func (s *ResetService) RequestReset(email string) error {
	user, err := s.repository.GetUserByEmail(email)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			s.log.Error("failed to look up user for password reset", zap.Error(err))
		}
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		s.log.Error("failed to generate reset token", zap.Error(err))
		return nil
	}

	record := &PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.config.ResetTokenTTL),
	}
	if err := s.repository.CreateResetToken(record); err != nil {
		s.log.Error("failed to persist reset token", zap.Error(err))
		return nil
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if err := s.mailer.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		s.log.Error("failed to send password reset email",
			zap.Uint("user_id", user.ID),
			zap.Error(err))
	}

	return nil
}

// ValidateToken looks a token up by literal value and accepts it only while
// unused and unexpired.
func (s *ResetService) ValidateToken(token string) (*PasswordResetToken, error) {
	record, err := s.repository.GetResetToken(token)
	if err != nil {
		return nil, err
	}
	if !record.IsValid(time.Now()) {
		return nil, ErrTokenNotFound
	}
	return record, nil
}

// ResetPassword consumes the token and replaces the user's password hash in
// one transaction. A consumed token stays consumed even when the password
// update that followed failed.
func (s *ResetService) ResetPassword(token, newPassword string) error {
	if len(newPassword) < s.config.MinPasswordLength {
		return apperr.Newf(apperr.KindValidation,
			"password must be at least %d characters", s.config.MinPasswordLength)
	}

	record, err := s.ValidateToken(token)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	return s.repository.ConsumeResetToken(record.ID, record.UserID, hash)
}

// generateResetToken returns 256 bits of URL-safe randomness.
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
