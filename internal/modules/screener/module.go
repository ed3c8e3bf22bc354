package screener

import (
	"go.uber.org/fx"

	"pigeon_bot/internal/modules/config"
	mdservice "pigeon_bot/internal/modules/marketdata/service"
	"pigeon_bot/internal/modules/screener/service"
)

func NewScreener(cfg *config.Config, md *mdservice.Client) *service.Screener {
	gate := service.NewHoneypotGate(cfg.SafetyCheckBase, cfg.APITimeout)
	return service.NewScreener(md, gate, service.Params{
		TopN:           cfg.ScreenerTopN,
		MinVolumeUSD:   cfg.MinVolumeUSD,
		MinDipPct:      cfg.MinDipPct,
		MinAgeYears:    cfg.MinAgeYears,
		MaxCandidates:  cfg.MaxCandidates,
		FlashCrashDrop: cfg.FlashCrashDrop,
		WatchlistFile:  cfg.WatchlistFile,
	})
}

func Module() fx.Option {
	return fx.Module("screener",
		fx.Provide(
			NewScreener,
		),
	)
}
