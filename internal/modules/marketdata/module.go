package marketdata

import (
	"go.uber.org/fx"

	"pigeon_bot/internal/modules/config"
	"pigeon_bot/internal/modules/marketdata/service"
)

func NewClient(cfg *config.Config) *service.Client {
	return service.NewClient(
		cfg.APIBase,
		cfg.APITimeout,
		cfg.RetryMax,
		cfg.RetryBackoff,
		cfg.SeriesTTL,
	)
}

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			NewClient,
		),
	)
}
