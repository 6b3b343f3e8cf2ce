package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/config"
)

// CheckoutSession is the provider's checkout object, reduced to the fields
// the reconciler needs.
type CheckoutSession struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	CustomerRef     string `json:"customer"`
	SubscriptionRef string `json:"subscription"`
	PaymentStatus   string `json:"payment_status"`
}

// Paid reports whether the provider considers the session settled.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Provider is the outbound surface of the billing provider: it creates
// checkout sessions and answers whether one was paid. Webhooks come in the
// other direction and do not go through here.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, userID uint, email, priceRef string) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

type httpProvider struct {
	config *config.BillingConfig
	client *http.Client
}

// NewProvider builds the HTTP client for the billing provider. All calls are
// bounded by the configured timeout; a timed-out call is a failed call,
// never retried here.
func NewProvider(config *config.BillingConfig) Provider {
	return &httpProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

type createSessionRequest struct {
	PriceRef      string `json:"price"`
	CustomerEmail string `json:"customer_email"`
	ClientRef     string `json:"client_reference_id"`
}

func (p *httpProvider) CreateCheckoutSession(ctx context.Context, userID uint, email, priceRef string) (*CheckoutSession, error) {
	body, err := json.Marshal(createSessionRequest{
		PriceRef:      priceRef,
		CustomerEmail: email,
		ClientRef:     fmt.Sprintf("%d", userID),
	})
	if err != nil {
		return nil, err
	}

	url := p.config.ProviderURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return p.do(req)
}

func (p *httpProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	url := p.config.ProviderURL + "/v1/checkout/sessions/" + sessionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return p.do(req)
}

func (p *httpProvider) do(req *http.Request) (*CheckoutSession, error) {
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamBilling, "billing provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.New(apperr.KindNotFound, "checkout session not found")
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Newf(apperr.KindUpstreamBilling,
			"billing provider returned status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamBilling, "malformed provider response", err)
	}
	return &session, nil
}
