package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/walletwise/walletwise/internal/apperr"
)

var ErrSubscriptionNotFound = apperr.New(apperr.KindNotFound, "no subscription found")

type Repository interface {
	// Transact runs fn against a repository bound to one database
	// transaction; every write inside either commits or rolls back together.
	Transact(fn func(Repository) error) error

	GetEvent(eventID string) (*WebhookEvent, error)
	UpsertEvent(event *WebhookEvent) error
	// MarkEventProcessed flips the processed flag and reports whether this
	// caller won the flip. false means a concurrent delivery got there first.
	MarkEventProcessed(eventID string) (bool, error)

	CurrentSubscription(userID uint) (*Subscription, error)
	SubscriptionByCustomerRef(customerRef string) (*Subscription, error)
	UpsertSubscription(sub *Subscription) error

	AppendPayment(payment *PaymentHistory) error
	PaymentsByUser(userID uint) ([]PaymentHistory, error)
	CountPaymentsByInvoice(invoiceRef string) (int64, error)

	SetUserSubscription(userID uint, status string, periodEnd *time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transact(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) GetEvent(eventID string) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := r.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// UpsertEvent inserts the ledger entry or refreshes the payload when a
// duplicate delivery races the first one. The unique index on event_id does
// the arbitration.
func (r *repository) UpsertEvent(event *WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload"}),
	}).Create(event).Error
}

func (r *repository) MarkEventProcessed(eventID string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&WebhookEvent{}).
		Where("event_id = ? AND processed = false", eventID).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CurrentSubscription(userID uint) (*Subscription, error) {
	var sub Subscription
	err := r.db.Where("user_id = ? AND is_current = true", userID).
		Order("created_at DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) SubscriptionByCustomerRef(customerRef string) (*Subscription, error) {
	var sub Subscription
	err := r.db.Where("customer_ref = ?", customerRef).
		Order("created_at DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription writes the record keyed by the external subscription
// ref and makes it the single current one for the user, demoting prior rows
// in the same transaction.
func (r *repository) UpsertSubscription(sub *Subscription) error {
	sub.IsCurrent = true
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Subscription{}).
			Where("user_id = ? AND subscription_ref <> ?", sub.UserID, sub.SubscriptionRef).
			Update("is_current", false).Error
		if err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subscription_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "is_current", "cancel_at_period_end",
				"current_period_start", "current_period_end",
				"trial_start", "trial_end", "updated_at",
			}),
		}).Create(sub).Error
	})
}

func (r *repository) AppendPayment(payment *PaymentHistory) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_ref"}},
		DoNothing: true,
	}).Create(payment).Error
}

func (r *repository) PaymentsByUser(userID uint) ([]PaymentHistory, error) {
	var payments []PaymentHistory
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *repository) CountPaymentsByInvoice(invoiceRef string) (int64, error) {
	var count int64
	err := r.db.Model(&PaymentHistory{}).
		Where("invoice_ref = ?", invoiceRef).Count(&count).Error
	return count, err
}

// SetUserSubscription mirrors the coarse status onto the user row. The users
// table is owned by the auth package; billing only touches these two columns.
func (r *repository) SetUserSubscription(userID uint, status string, periodEnd *time.Time) error {
	return r.db.Table("users").Where("id = ?", userID).Updates(map[string]interface{}{
		"subscription_status":     status,
		"subscription_period_end": periodEnd,
	}).Error
}
