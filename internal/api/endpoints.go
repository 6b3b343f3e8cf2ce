package api

// HTTP route paths. Handlers register against these; tests hit them.
const (
	AuthRegister       = "/auth/register"
	AuthLogin          = "/auth/login"
	AuthProfile        = "/auth/profile"
	AuthChangePassword = "/auth/change-password"
	AuthForgotPassword = "/auth/forgot-password"
	AuthResetPassword  = "/auth/reset-password"
	AuthUnblock        = "/auth/unblock/{userID}"

	BillingWebhook         = "/billing/webhook"
	BillingConfirmPayment  = "/billing/confirm-payment"
	BillingCheckoutSession = "/billing/checkout-session"
	BillingSubscription    = "/billing/subscription"

	Health = "/health"
)

// PublicEndpoints defines endpoints that don't require authentication. The
// webhook authenticates via its provider signature instead of a bearer token.
var PublicEndpoints = map[string]bool{
	AuthRegister:       true,
	AuthLogin:          true,
	AuthForgotPassword: true,
	AuthResetPassword:  true,
	BillingWebhook:     true,
	Health:             true,
}
