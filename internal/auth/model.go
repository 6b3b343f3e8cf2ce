package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account status values.
const (
	StatusActive = "active"
	StatusLocked = "locked"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Coarse subscription status values mirrored onto the user row. The richer
// provider vocabulary lives on the billing subscription record.
const (
	SubscriptionPending  = "pending"
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

type User struct {
	ID               uint   `gorm:"primaryKey"`
	Name             string `gorm:"not null"`
	Email            string `gorm:"uniqueIndex;not null"`
	Phone            string `gorm:"uniqueIndex;not null"`
	PasswordHash     string `gorm:"not null"`
	Status           string `gorm:"not null;default:active"`
	Role             string `gorm:"not null;default:user"`
	FailedLoginCount int    `gorm:"not null;default:0"`
	LockedAt         *time.Time
	LastLoginAt      *time.Time

	SubscriptionStatus    string `gorm:"not null;default:pending"`
	SubscriptionPeriodEnd *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsLocked() bool {
	return u.Status == StatusLocked
}

// PasswordResetToken is a single-use credential-recovery artifact. The token
// value is an opaque 256-bit random string; it is looked up by literal value
// and accepted only while unused and unexpired.
type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
