package auth

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/config"
)

// Service composes the token issuer, lockout guard, reset flow and the
// credential store into the operation set the API layer exposes.
type Service struct {
	config     *config.AuthConfig
	log        *zap.Logger
	repository Repository
	tokens     *TokenIssuer
	lockout    *LockoutGuard
	reset      *ResetService
}

func NewService(config *config.AuthConfig, log *zap.Logger, repo Repository, tokens *TokenIssuer, lockout *LockoutGuard, reset *ResetService) *Service {
	return &Service{
		config:     config,
		log:        log,
		repository: repo,
		tokens:     tokens,
		lockout:    lockout,
		reset:      reset,
	}
}

// ProfileUpdate carries the mutable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

func (s *Service) Register(name, email, phone, password string) (*User, string, error) {
	if err := s.validateRegistration(name, email, phone, password); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user := &User{
		Name:               strings.TrimSpace(name),
		Email:              email,
		Phone:              strings.TrimSpace(phone),
		PasswordHash:       hash,
		Status:             StatusActive,
		Role:               RoleUser,
		SubscriptionStatus: SubscriptionPending,
	}
	if err := s.repository.CreateUser(user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return user, token, nil
}

func (s *Service) Login(identifier, password string) (*User, string, error) {
	if identifier == "" || password == "" {
		return nil, "", apperr.New(apperr.KindValidation, "identifier and password are required")
	}

	user, err := s.lockout.Attempt(identifier, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}

	return user, token, nil
}

func (s *Service) Profile(userID uint) (*User, error) {
	return s.repository.GetUserByID(userID)
}

func (s *Service) UpdateProfile(userID uint, update ProfileUpdate) (*User, error) {
	user, err := s.repository.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperr.New(apperr.KindValidation, "name cannot be empty")
		}
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		if !isValidEmail(*update.Email) {
			return nil, apperr.New(apperr.KindValidation, "invalid email format")
		}
		user.Email = *update.Email
	}
	if update.Phone != nil {
		if strings.TrimSpace(*update.Phone) == "" {
			return nil, apperr.New(apperr.KindValidation, "phone cannot be empty")
		}
		user.Phone = strings.TrimSpace(*update.Phone)
	}

	if err := s.repository.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword requires re-verification of the current password.
func (s *Service) ChangePassword(userID uint, current, newPassword string) error {
	user, err := s.repository.GetUserByID(userID)
	if err != nil {
		return err
	}

	if !CheckPasswordHash(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if len(newPassword) < s.config.MinPasswordLength {
		return apperr.Newf(apperr.KindValidation,
			"password must be at least %d characters", s.config.MinPasswordLength)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	return s.repository.UpdatePassword(userID, hash)
}

func (s *Service) ForgotPassword(email string) error {
	if email == "" {
		return apperr.New(apperr.KindValidation, "email is required")
	}
	return s.reset.RequestReset(email)
}

func (s *Service) ResetPassword(token, newPassword string) error {
	if token == "" || newPassword == "" {
		return apperr.New(apperr.KindValidation, "token and new password are required")
	}
	return s.reset.ResetPassword(token, newPassword)
}

// Unblock clears a lockout. Only admins may call it.
func (s *Service) Unblock(caller *Claims, userID uint) error {
	if caller == nil || caller.Role != RoleAdmin {
		return ErrForbidden
	}

	if err := s.lockout.Unblock(userID); err != nil {
		return err
	}
	s.log.Info("account unblocked",
		zap.Uint("user_id", userID),
		zap.Uint("admin_id", caller.UserID))
	return nil
}

// DeleteAccount removes the user and cascades to owned records.
func (s *Service) DeleteAccount(userID uint) error {
	if _, err := s.repository.GetUserByID(userID); err != nil {
		return err
	}
	return s.repository.DeleteUser(userID)
}

func (s *Service) validateRegistration(name, email, phone, password string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.New(apperr.KindValidation, "name is required")
	}
	if email == "" {
		return apperr.New(apperr.KindValidation, "email is required")
	}
	if !isValidEmail(email) {
		return apperr.New(apperr.KindValidation, "invalid email format")
	}
	if strings.TrimSpace(phone) == "" {
		return apperr.New(apperr.KindValidation, "phone is required")
	}
	if password == "" {
		return apperr.New(apperr.KindValidation, "password is required")
	}
	if len(password) < s.config.MinPasswordLength {
		return apperr.Newf(apperr.KindValidation,
			"password must be at least %d characters", s.config.MinPasswordLength)
	}
	return nil
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
