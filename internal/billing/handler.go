package billing

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/auth"
	"github.com/walletwise/walletwise/internal/config"
	"github.com/walletwise/walletwise/internal/httputil"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 1 << 20

type Handler struct {
	config     *config.BillingConfig
	reconciler *Reconciler
	log        *zap.Logger
}

func NewHandler(config *config.BillingConfig, reconciler *Reconciler, log *zap.Logger) *Handler {
	return &Handler{
		config:     config,
		reconciler: reconciler,
		log:        log,
	}
}

type confirmPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

type checkoutRequest struct {
	PriceID string `json:"priceId"`
}

type webhookResponse struct {
	Received bool `json:"received"`
}

type subscriptionResponse struct {
	HasActiveAccess bool          `json:"hasActiveAccess"`
	Subscription    *Subscription `json:"subscription,omitempty"`
}

// Webhook handles POST /billing/webhook. The raw body is verified against
// the provider signature before any parsing; a bad signature is a 400 and
// the event is never recorded.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "unreadable request body")
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if err := VerifySignature(payload, signature, h.config.WebhookSecret, time.Now()); err != nil {
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		httputil.Error(w, ErrBadSignature)
		return
	}

	if err := h.reconciler.ProcessEvent(payload); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.log.Error("webhook processing failed", zap.Error(err))
		}
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, webhookResponse{Received: true})
}

// ConfirmPayment handles POST /billing/confirm-payment. Requires a bearer
// token; the session's paid state is verified server-side at the provider.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	sub, err := h.reconciler.ConfirmPayment(r.Context(), claims.UserID, req.SessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			h.log.Error("confirm payment failed", zap.Error(err))
		}
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, subscriptionResponse{
		HasActiveAccess: true,
		Subscription:    sub,
	})
}

// CreateCheckoutSession handles POST /billing/checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	session, err := h.reconciler.CreateCheckout(r.Context(), claims.UserID, claims.Email, req.PriceID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindValidation {
			h.log.Error("create checkout session failed", zap.Error(err))
		}
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session)
}

// Subscription handles GET /billing/subscription.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	active, sub, err := h.reconciler.CurrentAccess(claims.UserID)
	if err != nil {
		h.log.Error("subscription lookup failed", zap.Error(err))
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, subscriptionResponse{
		HasActiveAccess: active,
		Subscription:    sub,
	})
}
