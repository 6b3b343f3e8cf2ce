package billing

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/config"
)

// Provider event types the reconciler dispatches on. Anything else is
// accepted, recorded in the ledger and ignored.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoiceSucceeded    = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
)

var ErrMalformedEvent = apperr.New(apperr.KindValidation, "malformed webhook event")

type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialStart         int64             `json:"trial_start"`
	TrialEnd           int64             `json:"trial_end"`
	Metadata           map[string]string `json:"metadata"`
}

type invoiceObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountPaid   int64             `json:"amount_paid"`
	AmountDue    int64             `json:"amount_due"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Reconciler keeps local subscription state consistent with the billing
// provider under at-least-once webhook delivery, plus the authenticated
// confirm-payment fallback for deployments the provider cannot reach.
type Reconciler struct {
	config     *config.BillingConfig
	log        *zap.Logger
	repository Repository
	provider   Provider
}

func NewReconciler(config *config.BillingConfig, log *zap.Logger, repo Repository, provider Provider) *Reconciler {
	return &Reconciler{
		config:     config,
		log:        log,
		repository: repo,
		provider:   provider,
	}
}

// ProcessEvent ingests one verified webhook payload. Replays of an already
// processed event id are a no-op. The ledger flip and the state mutations
// commit in one transaction; the guarded flip decides the winner when
// duplicate deliveries race.
func (r *Reconciler) ProcessEvent(payload []byte) error {
	var event providerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ErrMalformedEvent
	}
	if event.ID == "" || event.Type == "" {
		return ErrMalformedEvent
	}

	existing, err := r.repository.GetEvent(event.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Processed {
		r.log.Info("webhook event replayed, skipping",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		return nil
	}

	if err := r.repository.UpsertEvent(&WebhookEvent{
		EventID: event.ID,
		Type:    event.Type,
		Payload: payload,
	}); err != nil {
		return err
	}

	return r.repository.Transact(func(tx Repository) error {
		won, err := tx.MarkEventProcessed(event.ID)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent delivery is handling this event.
			return nil
		}
		return r.dispatch(tx, &event)
	})
}

func (r *Reconciler) dispatch(tx Repository, event *providerEvent) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return r.applySubscription(tx, event, false)
	case EventSubscriptionDeleted:
		return r.applySubscription(tx, event, true)
	case EventInvoiceSucceeded:
		return r.applyInvoice(tx, event, true)
	case EventInvoiceFailed:
		return r.applyInvoice(tx, event, false)
	default:
		r.log.Info("unhandled webhook event type",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		return nil
	}
}

func (r *Reconciler) applySubscription(tx Repository, event *providerEvent, deleted bool) error {
	var obj subscriptionObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return ErrMalformedEvent
	}
	if obj.ID == "" {
		return ErrMalformedEvent
	}

	userID, err := r.resolveUserID(tx, obj.Metadata, obj.Customer)
	if err != nil {
		return err
	}

	status := obj.Status
	if deleted {
		status = StatusCanceled
	}

	periodEnd := unixTime(obj.CurrentPeriodEnd)
	sub := &Subscription{
		UserID:             userID,
		CustomerRef:        obj.Customer,
		SubscriptionRef:    obj.ID,
		Status:             status,
		CancelAtPeriodEnd:  obj.CancelAtPeriodEnd,
		CurrentPeriodStart: unixTime(obj.CurrentPeriodStart),
		CurrentPeriodEnd:   periodEnd,
		TrialStart:         unixTime(obj.TrialStart),
		TrialEnd:           unixTime(obj.TrialEnd),
	}
	if err := tx.UpsertSubscription(sub); err != nil {
		return err
	}

	coarse := CoarseStatus(status)
	if err := tx.SetUserSubscription(userID, coarse, periodEnd); err != nil {
		return err
	}

	r.log.Info("subscription reconciled",
		zap.Uint("user_id", userID),
		zap.String("subscription_ref", obj.ID),
		zap.String("status", status))
	return nil
}

func (r *Reconciler) applyInvoice(tx Repository, event *providerEvent, succeeded bool) error {
	var obj invoiceObject
	if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
		return ErrMalformedEvent
	}
	if obj.ID == "" {
		return ErrMalformedEvent
	}

	userID, err := r.resolveUserID(tx, obj.Metadata, obj.Customer)
	if err != nil {
		return err
	}

	amount := obj.AmountPaid
	status := PaymentSucceeded
	if !succeeded {
		amount = obj.AmountDue
		status = PaymentFailed
	}

	if err := tx.AppendPayment(&PaymentHistory{
		UserID:          userID,
		InvoiceRef:      obj.ID,
		SubscriptionRef: obj.Subscription,
		Amount:          amount,
		Currency:        obj.Currency,
		Status:          status,
	}); err != nil {
		return err
	}

	if !succeeded {
		return tx.SetUserSubscription(userID, StatusPastDue, nil)
	}
	return nil
}

// resolveUserID prefers the user id the provider echoes back in metadata,
// falling back to the customer ref of a subscription we already know.
func (r *Reconciler) resolveUserID(tx Repository, metadata map[string]string, customerRef string) (uint, error) {
	if raw, ok := metadata["user_id"]; ok && raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, ErrMalformedEvent
		}
		return uint(id), nil
	}

	if customerRef != "" {
		sub, err := tx.SubscriptionByCustomerRef(customerRef)
		if err == nil {
			return sub.UserID, nil
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return 0, err
		}
	}

	return 0, apperr.New(apperr.KindNotFound, "no user for webhook event")
}

// ConfirmPayment is the non-webhook activation path. The caller must be
// authenticated, and the checkout session must be verified as paid against
// the provider before anything flips to active.
func (r *Reconciler) ConfirmPayment(ctx context.Context, userID uint, sessionID string) (*Subscription, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindValidation, "sessionId is required")
	}

	session, err := r.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Paid() {
		return nil, apperr.New(apperr.KindValidation, "checkout session is not paid")
	}

	var result *Subscription
	err = r.repository.Transact(func(tx Repository) error {
		if session.SubscriptionRef != "" {
			sub := &Subscription{
				UserID:          userID,
				CustomerRef:     session.CustomerRef,
				SubscriptionRef: session.SubscriptionRef,
				Status:          StatusActive,
			}
			if err := tx.UpsertSubscription(sub); err != nil {
				return err
			}
			result = sub
		}
		return tx.SetUserSubscription(userID, StatusActive, nil)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("payment confirmed",
		zap.Uint("user_id", userID),
		zap.String("session_id", sessionID))
	return result, nil
}

// CreateCheckout starts a provider checkout session for the caller.
func (r *Reconciler) CreateCheckout(ctx context.Context, userID uint, email, priceRef string) (*CheckoutSession, error) {
	if priceRef == "" {
		return nil, apperr.New(apperr.KindValidation, "priceId is required")
	}
	return r.provider.CreateCheckoutSession(ctx, userID, email, priceRef)
}

// CurrentAccess returns the derived access boolean and the current
// subscription record, which is nil for a never-subscribed user.
func (r *Reconciler) CurrentAccess(userID uint) (bool, *Subscription, error) {
	sub, err := r.repository.CurrentSubscription(userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return false, nil, nil
		}
		return false, nil, err
	}
	return sub.HasActiveAccess(time.Now()), sub, nil
}

// CoarseStatus maps the provider's status vocabulary onto the user row:
// active and trialing both grant the coarse "active"; everything else is
// mirrored verbatim.
func CoarseStatus(providerStatus string) string {
	if providerStatus == StatusActive || providerStatus == StatusTrialing {
		return StatusActive
	}
	return providerStatus
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0)
	return &t
}
