package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pigeon_bot/pkg/logger"
)

type PoolConfig struct {
	DSN string
}

// PgTxManager wraps a pgx pool with transactional helpers for the trade
// journal.
type PgTxManager struct {
	pool *pgxpool.Pool
}

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool}
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, conf.DSN)
}

func (m *PgTxManager) Close() {
	m.pool.Close()
}

// Run executes fn inside a read-committed transaction, rolling back on
// error or panic. The return is named so the deferred commit can report
// its failure.
func (m *PgTxManager) Run(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	options := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

	tx, err := m.pool.BeginTx(ctx, options)
	if err != nil {
		return fmt.Errorf("failed to begin tx, err: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic in tx: %v", p)
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to run fn, err: %w", err)
	}

	return nil
}
