package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/walletwise/walletwise/internal/config"
	"github.com/walletwise/walletwise/internal/notification"
)

// NewModule returns the auth module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository
			fx.Annotate(
				func(db *gorm.DB) Repository {
					return NewRepository(db)
				},
			),
			// Provide token issuer
			fx.Annotate(
				func(config *config.AppConfig) *TokenIssuer {
					return NewTokenIssuer(&config.Auth)
				},
			),
			// Provide lockout guard
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, mailer *notification.EmailService) *LockoutGuard {
					return NewLockoutGuard(&config.Auth, log, repo, mailer, config.Mail.SupportContact)
				},
			),
			// Provide reset flow
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, mailer *notification.EmailService) *ResetService {
					return NewResetService(&config.Auth, log, repo, mailer, config.Server.BaseURL)
				},
			),
			// Provide service
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, tokens *TokenIssuer, lockout *LockoutGuard, reset *ResetService) *Service {
					return NewService(&config.Auth, log, repo, tokens, lockout, reset)
				},
			),
			// Provide handler
			fx.Annotate(
				func(svc *Service, log *zap.Logger) *Handler {
					return NewHandler(svc, log)
				},
			),
			// Provide middleware
			fx.Annotate(
				func(tokens *TokenIssuer) *Middleware {
					return NewMiddleware(tokens)
				},
			),
		),
	)
}
