package auth

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:         "test-secret-key",
		TokenExpiration:   time.Hour,
		LockoutThreshold:  5,
		MinPasswordLength: 6,
		ResetTokenTTL:     time.Hour,
	}
}

type mockMailer struct {
	mu        sync.Mutex
	resetURLs []string
	lockedTo  []string
	fail      bool
}

func (m *mockMailer) SendPasswordReset(email, name, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *mockMailer) SendAccountLocked(email, name, supportContact string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.lockedTo = append(m.lockedTo, email)
	return nil
}

// lastResetToken pulls the token out of the most recent reset link.
func (m *mockMailer) lastResetToken(t *testing.T) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetURLs) == 0 {
		t.Fatal("no reset email was sent")
	}
	url := m.resetURLs[len(m.resetURLs)-1]
	_, token, found := strings.Cut(url, "token=")
	assert.True(t, found)
	return token
}

func (m *mockMailer) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resetURLs)
}

type testEnv struct {
	service *Service
	repo    *mockRepository
	mailer  *mockMailer
	tokens  *TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	cfg := newTestConfig()
	log := newTestLogger(t)
	repo := newMockRepository()
	mailer := &mockMailer{}

	tokens := NewTokenIssuer(cfg)
	lockout := NewLockoutGuard(cfg, log, repo, mailer, "support@walletwise.app")
	reset := NewResetService(cfg, log, repo, mailer, "http://localhost:8080")

	return &testEnv{
		service: NewService(cfg, log, repo, tokens, lockout, reset),
		repo:    repo,
		mailer:  mailer,
		tokens:  tokens,
	}
}

func newTestService(t *testing.T) *Service {
	return newTestEnv(t).service
}

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(newTestService(t), newTestLogger(t))
}

func registerTestUser(t *testing.T, env *testEnv, email string) *User {
	user, _, err := env.service.Register("Ana Souza", email, "+5511"+email[:4], "hunter22")
	assert.NoError(t, err)
	return user
}
