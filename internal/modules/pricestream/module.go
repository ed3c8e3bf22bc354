package pricestream

import (
	"go.uber.org/fx"

	"pigeon_bot/internal/modules/config"
	healthservice "pigeon_bot/internal/modules/health/service"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	"pigeon_bot/internal/modules/pricestream/service"
)

// NewStreamer is nil when streaming is disabled; the runner then relies
// on the daily tick alone for trailing peaks.
func NewStreamer(cfg *config.Config, ledger *portfolioservice.Ledger, health *healthservice.State) *service.Streamer {
	if !cfg.StreamEnabled {
		return nil
	}
	return service.NewStreamer(cfg.StreamURL, ledger, health)
}

func Module() fx.Option {
	return fx.Module("pricestream",
		fx.Provide(
			NewStreamer,
		),
	)
}
