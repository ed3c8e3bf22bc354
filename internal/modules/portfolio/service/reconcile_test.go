package service

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type fakeAccount struct {
	balance float64
	err     error
}

func (f fakeAccount) QuoteBalance(context.Context) (float64, error) { return f.balance, f.err }

func TestReconcile(t *testing.T) {
	l := newTestLedger(t, testParams()) // echo 700 + nia 300 on first load
	ctx := context.Background()

	if err := l.Reconcile(ctx, fakeAccount{balance: 1000}, 0.05); err != nil {
		t.Fatalf("exact balance must reconcile, got %v", err)
	}
	if err := l.Reconcile(ctx, fakeAccount{balance: 960}, 0.05); err != nil {
		t.Fatalf("balance within tolerance must reconcile, got %v", err)
	}

	err := l.Reconcile(ctx, fakeAccount{balance: 500}, 0.05)
	if err == nil || !strings.Contains(err.Error(), "balance mismatch") {
		t.Fatalf("want mismatch error, got %v", err)
	}

	if err := l.Reconcile(ctx, fakeAccount{err: errors.New("api down")}, 0.05); err == nil {
		t.Fatal("account fetch failure must surface")
	}
}
