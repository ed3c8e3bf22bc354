package portfolio

import (
	"go.uber.org/fx"

	"pigeon_bot/internal/models"
	"pigeon_bot/internal/modules/config"
	"pigeon_bot/internal/modules/portfolio/service"
	"pigeon_bot/pkg/db"
)

func NewParams(cfg *config.Config) service.Params {
	policies := make(map[models.PoolKind]service.PoolPolicy, len(cfg.Pools))
	for name, pc := range cfg.Pools {
		policies[models.PoolKind(name)] = service.PoolPolicy{
			RiskFraction: pc.RiskFraction,
			MaxPositions: pc.MaxPositions,
		}
	}
	return service.Params{
		FeeRate:          cfg.FeeRate,
		DustFloor:        cfg.DustFloor,
		StartingCapital:  cfg.StartingCapital,
		EchoSplit:        cfg.EchoSplit,
		CircuitBreakerAt: cfg.CircuitBreakerAt,
		Policies:         policies,
	}
}

func NewStore(cfg *config.Config) service.Store {
	return service.NewFileStore(cfg.StateFile)
}

// NewJournal is nil when no DSN is configured; the ledger degrades to
// file-only persistence.
func NewJournal(tx *db.PgTxManager) service.Journal {
	if tx == nil {
		return nil
	}
	return service.NewPgJournal(tx)
}

func Module() fx.Option {
	return fx.Module("portfolio",
		fx.Provide(
			NewParams,
			NewStore,
			NewJournal,
			service.NewLedger,
		),
	)
}
