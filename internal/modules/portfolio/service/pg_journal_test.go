package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
)

type capturingTx struct {
	pgx.Tx
	sql  string
	args []any
}

func (t *capturingTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.sql = sql
	t.args = args
	return pgconn.CommandTag{}, nil
}

type fakeTxManager struct {
	tx     capturingTx
	runs   int
	runErr error
}

func (m *fakeTxManager) Run(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	m.runs++
	if m.runErr != nil {
		return m.runErr
	}
	return fn(ctx, &m.tx)
}

func TestPgJournalRecordsInsideTransaction(t *testing.T) {
	mgr := &fakeTxManager{}
	j := NewPgJournal(mgr)

	fill := Fill{
		ID:          "f-1",
		Pool:        models.PoolEcho,
		Instrument:  "deepcoin",
		Side:        models.SignalBuy,
		Price:       36.3,
		Amount:      0.96,
		Fee:         0.14,
		CashDelta:   -35.14,
		RealizedPnL: 0,
		Ts:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := j.Record(context.Background(), fill); err != nil {
		t.Fatal(err)
	}

	if mgr.runs != 1 {
		t.Fatalf("want the insert inside one transaction, got %d runs", mgr.runs)
	}
	if !strings.Contains(mgr.tx.sql, "INSERT INTO trades") || !strings.Contains(mgr.tx.sql, "ON CONFLICT (id) DO NOTHING") {
		t.Fatalf("unexpected statement: %s", mgr.tx.sql)
	}
	if len(mgr.tx.args) != 10 {
		t.Fatalf("want 10 bound columns, got %d", len(mgr.tx.args))
	}
	if mgr.tx.args[0] != "f-1" || mgr.tx.args[1] != "echo" || mgr.tx.args[3] != "BUY" {
		t.Fatalf("unexpected bindings: %v", mgr.tx.args)
	}
}

func TestPgJournalSurfacesTxFailure(t *testing.T) {
	mgr := &fakeTxManager{runErr: errors.New("commit failed")}
	j := NewPgJournal(mgr)

	err := j.Record(context.Background(), Fill{ID: "f-2"})
	if err == nil || !strings.Contains(err.Error(), "commit failed") {
		t.Fatalf("a transaction failure must surface from Record, got %v", err)
	}
}
