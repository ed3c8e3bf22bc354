package service

import (
	"context"

	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// AccountClient is the external account the ledger reconciles against in
// live mode.
type AccountClient interface {
	QuoteBalance(ctx context.Context) (float64, error)
}

// Reconcile compares the external quote balance against the ledger's idle
// cash. A balance far below expectation is fatal: trading oversized orders
// against missing real funds is worse than not starting.
func (l *Ledger) Reconcile(ctx context.Context, acct AccountClient, tolerance float64) error {
	real, err := acct.QuoteBalance(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch account balance")
	}
	st, err := l.Load(ctx)
	if err != nil {
		return err
	}
	var expected float64
	for _, k := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		expected += st.Pool(k).Cash
	}
	if expected <= 0 {
		return nil
	}
	if real < expected*(1-tolerance) {
		return errors.Errorf(
			"balance mismatch: account %.2f below ledger expectation %.2f (tolerance %.0f%%)",
			real, expected, tolerance*100,
		)
	}
	logger.Info("balance reconciled: account %.2f vs ledger %.2f", real, expected)
	return nil
}
