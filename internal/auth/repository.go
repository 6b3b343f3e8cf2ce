package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/walletwise/walletwise/internal/apperr"
)

var (
	ErrUserNotFound   = apperr.New(apperr.KindNotFound, "user not found")
	ErrDuplicateEmail = apperr.New(apperr.KindDuplicateEmail, "email already registered")
	ErrDuplicatePhone = apperr.New(apperr.KindDuplicatePhone, "phone already registered")
	ErrTokenNotFound  = apperr.New(apperr.KindInvalidResetToken, "invalid or expired token")
)

type Repository interface {
	CreateUser(user *User) error
	GetUserByID(id uint) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByPhone(phone string) (*User, error)
	GetUserByIdentifier(identifier string) (*User, error)
	UpdateUser(user *User) error
	UpdatePassword(userID uint, passwordHash string) error
	DeleteUser(userID uint) error

	IncrementFailedLogins(userID uint) (int, error)
	ResetFailedLogins(userID uint, loginAt time.Time) error
	LockUser(userID uint, at time.Time) error
	UnlockUser(userID uint) error

	CreateResetToken(token *PasswordResetToken) error
	GetResetToken(token string) (*PasswordResetToken, error)
	ConsumeResetToken(tokenID uuid.UUID, userID uint, passwordHash string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// NormalizeEmail fixes the case-sensitivity policy: emails compare and store
// lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *repository) CreateUser(user *User) error {
	user.Email = NormalizeEmail(user.Email)

	// Pre-checks give precise duplicate errors; the unique indexes close the
	// race window between check and insert.
	if _, err := r.GetUserByEmail(user.Email); err == nil {
		return ErrDuplicateEmail
	}
	if _, err := r.GetUserByPhone(user.Phone); err == nil {
		return ErrDuplicatePhone
	}

	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.classifyDuplicate(user)
		}
		return err
	}
	return nil
}

// classifyDuplicate decides which unique constraint an insert lost against.
func (r *repository) classifyDuplicate(user *User) error {
	if _, err := r.GetUserByEmail(user.Email); err == nil {
		return ErrDuplicateEmail
	}
	return ErrDuplicatePhone
}

func (r *repository) GetUserByID(id uint) (*User, error) {
	var user User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUserByEmail(email string) (*User, error) {
	var user User
	if err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUserByPhone(phone string) (*User, error) {
	var user User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByIdentifier resolves a login identifier, which may be an email or
// a phone number.
func (r *repository) GetUserByIdentifier(identifier string) (*User, error) {
	if strings.Contains(identifier, "@") {
		return r.GetUserByEmail(identifier)
	}
	return r.GetUserByPhone(identifier)
}

func (r *repository) UpdateUser(user *User) error {
	user.Email = NormalizeEmail(user.Email)
	if err := r.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.classifyDuplicate(user)
		}
		return err
	}
	return nil
}

func (r *repository) UpdatePassword(userID uint, passwordHash string) error {
	return r.db.Model(&User{}).Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *repository) DeleteUser(userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}

// IncrementFailedLogins bumps the counter in a single UPDATE so concurrent
// failed attempts never under-count, and returns the new value.
func (r *repository) IncrementFailedLogins(userID uint) (int, error) {
	err := r.db.Model(&User{}).Where("id = ?", userID).
		Update("failed_login_count", gorm.Expr("failed_login_count + 1")).Error
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.Model(&User{}).Where("id = ?", userID).
		Pluck("failed_login_count", &count).Error
	return count, err
}

func (r *repository) ResetFailedLogins(userID uint, loginAt time.Time) error {
	return r.db.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"failed_login_count": 0,
		"last_login_at":      loginAt,
	}).Error
}

func (r *repository) LockUser(userID uint, at time.Time) error {
	return r.db.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"status":    StatusLocked,
		"locked_at": at,
	}).Error
}

func (r *repository) UnlockUser(userID uint) error {
	return r.db.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"status":             StatusActive,
		"failed_login_count": 0,
		"locked_at":          nil,
	}).Error
}

func (r *repository) CreateResetToken(token *PasswordResetToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	return r.db.Create(token).Error
}

func (r *repository) GetResetToken(token string) (*PasswordResetToken, error) {
	var t PasswordResetToken
	if err := r.db.Where("token = ?", token).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ConsumeResetToken flips the used flag and updates the password hash in one
// transaction. The used = false guard makes the flip first-writer-wins under
// concurrent resets with the same token.
func (r *repository) ConsumeResetToken(tokenID uuid.UUID, userID uint, passwordHash string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PasswordResetToken{}).
			Where("id = ? AND used = false", tokenID).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotFound
		}

		return tx.Model(&User{}).Where("id = ?", userID).
			Update("password_hash", passwordHash).Error
	})
}
