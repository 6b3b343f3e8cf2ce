package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/walletwise/walletwise/internal/apperr"
)

type userSubscription struct {
	Status    string
	PeriodEnd *time.Time
}

type mockRepository struct {
	mu            sync.Mutex
	events        map[string]*WebhookEvent
	subscriptions map[string]*Subscription
	payments      []PaymentHistory
	userStatus    map[uint]userSubscription
	nextID        uint
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		events:        make(map[string]*WebhookEvent),
		subscriptions: make(map[string]*Subscription),
		userStatus:    make(map[uint]userSubscription),
		nextID:        1,
	}
}

func (r *mockRepository) Transact(fn func(Repository) error) error {
	return fn(r)
}

func (r *mockRepository) GetEvent(eventID string) (*WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, nil
	}
	clone := *event
	return &clone, nil
}

func (r *mockRepository) UpsertEvent(event *WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.events[event.EventID]; ok {
		existing.Payload = event.Payload
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	clone := *event
	r.events[event.EventID] = &clone
	return nil
}

func (r *mockRepository) MarkEventProcessed(eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok || event.Processed {
		return false, nil
	}
	now := time.Now()
	event.Processed = true
	event.ProcessedAt = &now
	return true, nil
}

func (r *mockRepository) CurrentSubscription(userID uint) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subscriptions {
		if sub.UserID == userID && sub.IsCurrent {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (r *mockRepository) SubscriptionByCustomerRef(customerRef string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subscriptions {
		if sub.CustomerRef == customerRef {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (r *mockRepository) UpsertSubscription(sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub.IsCurrent = true
	for ref, existing := range r.subscriptions {
		if existing.UserID == sub.UserID && ref != sub.SubscriptionRef {
			existing.IsCurrent = false
		}
	}

	if existing, ok := r.subscriptions[sub.SubscriptionRef]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = r.nextID
		r.nextID++
		sub.CreatedAt = time.Now()
	}
	sub.UpdatedAt = time.Now()
	clone := *sub
	r.subscriptions[sub.SubscriptionRef] = &clone
	return nil
}

func (r *mockRepository) AppendPayment(payment *PaymentHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.InvoiceRef == payment.InvoiceRef {
			return nil
		}
	}
	payment.ID = r.nextID
	r.nextID++
	payment.CreatedAt = time.Now()
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *mockRepository) PaymentsByUser(userID uint) ([]PaymentHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []PaymentHistory
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *mockRepository) CountPaymentsByInvoice(invoiceRef string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, p := range r.payments {
		if p.InvoiceRef == invoiceRef {
			count++
		}
	}
	return count, nil
}

func (r *mockRepository) SetUserSubscription(userID uint, status string, periodEnd *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userStatus[userID] = userSubscription{Status: status, PeriodEnd: periodEnd}
	return nil
}

// mockProvider answers checkout-session lookups from a fixed map.
type mockProvider struct {
	sessions map[string]*CheckoutSession
	err      error
}

func newMockProvider() *mockProvider {
	return &mockProvider{sessions: make(map[string]*CheckoutSession)}
}

func (p *mockProvider) CreateCheckoutSession(_ context.Context, userID uint, email, priceRef string) (*CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	session := &CheckoutSession{
		ID:            uuid.NewString(),
		URL:           "https://billing.example.com/checkout/" + priceRef,
		PaymentStatus: "unpaid",
	}
	p.sessions[session.ID] = session
	return session, nil
}

func (p *mockProvider) GetCheckoutSession(_ context.Context, sessionID string) (*CheckoutSession, error) {
	if p.err != nil {
		return nil, p.err
	}
	session, ok := p.sessions[sessionID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	return session, nil
}
