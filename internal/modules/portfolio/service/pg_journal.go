package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"pigeon_bot/pkg/db"
)

// PgJournal appends fills to a Postgres trades table: the durable audit
// trail behind the JSON ledger. Schema:
//
//	CREATE TABLE IF NOT EXISTS trades (
//	    id           uuid PRIMARY KEY,
//	    pool         text NOT NULL,
//	    instrument   text NOT NULL,
//	    side         text NOT NULL,
//	    price        double precision NOT NULL,
//	    amount       double precision NOT NULL,
//	    fee          double precision NOT NULL,
//	    cash_delta   double precision NOT NULL,
//	    realized_pnl double precision NOT NULL,
//	    ts           timestamptz NOT NULL
//	);
type PgJournal struct {
	tx db.TxManager
}

func NewPgJournal(tx db.TxManager) *PgJournal {
	return &PgJournal{tx: tx}
}

func (j *PgJournal) Record(ctx context.Context, f Fill) error {
	const q = `
		INSERT INTO trades (id, pool, instrument, side, price, amount, fee, cash_delta, realized_pnl, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	err := j.tx.Run(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			f.ID, string(f.Pool), f.Instrument, string(f.Side),
			f.Price, f.Amount, f.Fee, f.CashDelta, f.RealizedPnL, f.Ts,
		)
		return err
	})
	return errors.Wrap(err, "insert trade")
}
