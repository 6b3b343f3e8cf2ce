package notification

import (
	"go.uber.org/fx"

	"github.com/walletwise/walletwise/internal/config"
)

// NewModule returns the notification module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig) *EmailService {
					return NewEmailService(&config.Mail)
				},
			),
		),
	)
}
