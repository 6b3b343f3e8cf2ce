package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/httputil"
)

// Define a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key used to store verified claims in the context
	ClaimsContextKey contextKey = "claims"
)

type Middleware struct {
	tokens *TokenIssuer
}

func NewMiddleware(tokens *TokenIssuer) *Middleware {
	return &Middleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores the claims in the
// request context. Requests without a valid token get 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.ErrorKind(w, apperr.KindInvalidToken, "missing bearer token")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			httputil.ErrorKind(w, apperr.KindInvalidToken, "malformed authorization header")
			return
		}

		claims, err := m.tokens.Parse(token)
		if err != nil {
			httputil.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
