package regime

import (
	"go.uber.org/fx"

	"pigeon_bot/internal/modules/config"
	mdservice "pigeon_bot/internal/modules/marketdata/service"
	"pigeon_bot/internal/modules/regime/service"
)

func NewProvider(cfg *config.Config, md *mdservice.Client) *service.Provider {
	return service.NewProvider(md, cfg.Benchmark, cfg.RegimeTTL)
}

func Module() fx.Option {
	return fx.Module("regime",
		fx.Provide(
			NewProvider,
		),
	)
}
