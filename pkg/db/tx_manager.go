package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxManager runs a unit of work inside a database transaction.
type TxManager interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}
