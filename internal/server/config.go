package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/walletwise/walletwise/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

func LoadConfig() (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath("./config/server")

	// Secrets and deployment-specific values come from the environment,
	// e.g. WALLETWISE_AUTH_JWT_SECRET, WALLETWISE_BILLING_WEBHOOK_SECRET.
	v.SetEnvPrefix("WALLETWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg config.AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg, env); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig refuses to start without signing material outside local
// development. A defaulted JWT secret makes every token forgeable.
func validateConfig(cfg *config.AppConfig, env string) error {
	if env == EnvDevelopment || env == EnvTesting {
		return nil
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set in %s environment", env)
	}
	if cfg.Billing.WebhookSecret == "" {
		return fmt.Errorf("billing.webhook_secret must be set in %s environment", env)
	}
	return nil
}
