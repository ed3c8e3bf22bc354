package postgres

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"pigeon_bot/internal/modules/config"
	"pigeon_bot/pkg/db"
)

// Module provides the shared pgx pool behind the trade journal. With no
// DSN configured it yields a nil manager and the journal stays off.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					return nil, nil
				}
				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, errors.Wrap(err, "create pg pool")
				}
				if err := pool.Ping(ctx); err != nil {
					return nil, errors.Wrap(err, "ping pg")
				}
				return db.NewPgTxManager(pool), nil
			},
		),
	)
}
