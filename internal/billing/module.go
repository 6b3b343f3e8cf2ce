package billing

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/walletwise/walletwise/internal/config"
)

// NewModule returns the billing module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			// Provide repository
			fx.Annotate(
				func(db *gorm.DB) Repository {
					return NewRepository(db)
				},
			),
			// Provide provider client
			fx.Annotate(
				func(config *config.AppConfig) Provider {
					return NewProvider(&config.Billing)
				},
			),
			// Provide reconciler
			fx.Annotate(
				func(config *config.AppConfig, log *zap.Logger, repo Repository, provider Provider) *Reconciler {
					return NewReconciler(&config.Billing, log, repo, provider)
				},
			),
			// Provide handler
			fx.Annotate(
				func(config *config.AppConfig, reconciler *Reconciler, log *zap.Logger) *Handler {
					return NewHandler(&config.Billing, reconciler, log)
				},
			),
		),
	)
}
