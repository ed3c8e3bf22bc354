package strategy

import (
	"fmt"

	"go.uber.org/fx"

	"pigeon_bot/internal/models"
	"pigeon_bot/internal/modules/config"
	"pigeon_bot/internal/modules/strategy/service"
)

// Book maps each pool to its constructed strategy.
type Book map[models.PoolKind]service.Strategy

// NewBook builds one strategy per configured pool.
func NewBook(cfg *config.Config) (Book, error) {
	book := make(Book, len(cfg.Pools))
	for name, pc := range cfg.Pools {
		kind, err := models.ParseStrategyKind(pc.Strategy)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		st, err := service.New(kind)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", name, err)
		}
		book[models.PoolKind(name)] = st
	}
	return book, nil
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewBook,
		),
	)
}
