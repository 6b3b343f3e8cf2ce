package billing

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestBillingConfig() *config.BillingConfig {
	return &config.BillingConfig{
		APIKey:        "test-api-key",
		WebhookSecret: "test-webhook-secret",
		ProviderURL:   "https://billing.example.com",
		Timeout:       5 * time.Second,
	}
}

type billingEnv struct {
	reconciler *Reconciler
	repo       *mockRepository
	provider   *mockProvider
	config     *config.BillingConfig
}

func newBillingEnv(t *testing.T) *billingEnv {
	repo := newMockRepository()
	provider := newMockProvider()
	cfg := newTestBillingConfig()
	return &billingEnv{
		reconciler: NewReconciler(cfg, newTestLogger(t), repo, provider),
		repo:       repo,
		provider:   provider,
		config:     cfg,
	}
}

// subscriptionEvent builds a provider webhook payload for a subscription
// lifecycle event.
func subscriptionEvent(t *testing.T, eventID, eventType string, obj subscriptionObject) []byte {
	object, err := json.Marshal(obj)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]interface{}{"object": json.RawMessage(object)},
	})
	require.NoError(t, err)
	return payload
}

func invoiceEvent(t *testing.T, eventID, eventType string, obj invoiceObject) []byte {
	object, err := json.Marshal(obj)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": eventType,
		"data": map[string]interface{}{"object": json.RawMessage(object)},
	})
	require.NoError(t, err)
	return payload
}

func userMeta(userID uint) map[string]string {
	return map[string]string{"user_id": fmt.Sprintf("%d", userID)}
}
