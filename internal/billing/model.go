package billing

import (
	"time"

	"github.com/google/uuid"
)

// Provider subscription status vocabulary. The provider owns this; we store
// it verbatim on the subscription record and derive the coarse user status
// from it.
const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

// Payment outcomes.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Subscription is the local mirror of the provider's subscription object.
// Exactly one record per user carries is_current = true; it is the source
// of truth for access gating.
type Subscription struct {
	ID                uint   `gorm:"primaryKey"`
	UserID            uint   `gorm:"not null;index"`
	CustomerRef       string `gorm:"not null;index"`
	SubscriptionRef   string `gorm:"uniqueIndex;not null"`
	Status            string `gorm:"not null"`
	IsCurrent         bool   `gorm:"not null;default:false;index"`
	CancelAtPeriodEnd bool   `gorm:"not null;default:false"`

	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// HasActiveAccess is the derived access boolean that gates features:
// trialing with a future trial end, or active with an absent or future
// period end. Everything else, past_due and canceled included, is false.
func (s *Subscription) HasActiveAccess(now time.Time) bool {
	switch s.Status {
	case StatusTrialing:
		return s.TrialEnd != nil && now.Before(*s.TrialEnd)
	case StatusActive:
		return s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd)
	default:
		return false
	}
}

// PaymentHistory records one invoice outcome.
type PaymentHistory struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"not null;index"`
	InvoiceRef      string `gorm:"uniqueIndex;not null"`
	SubscriptionRef string `gorm:"index"`
	Amount          int64  `gorm:"not null"`
	Currency        string `gorm:"not null"`
	Status          string `gorm:"not null"`
	CreatedAt       time.Time
}

func (PaymentHistory) TableName() string {
	return "payment_history"
}

// WebhookEvent is the idempotency ledger entry for one inbound provider
// event. The unique external event id is the sole concurrency guard against
// duplicate deliveries.
type WebhookEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null"`
	Payload     []byte    `gorm:"type:jsonb;not null"`
	Processed   bool      `gorm:"not null;default:false"`
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
