package service

import (
	"context"
	"strings"
	"testing"

	"pigeon_bot/internal/models"
)

func TestStatusText(t *testing.T) {
	l := newTestLedger(t, testParams())
	ctx := context.Background()

	if _, err := l.ApplySignal(ctx, models.PoolEcho, candidate("coin"), models.SignalBuy, 10, neutral, tradeTime); err != nil {
		t.Fatal(err)
	}

	text, err := l.StatusText(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "[echo] cash") || !strings.Contains(text, "[nia] cash 300.00") {
		t.Fatalf("pool lines missing:\n%s", text)
	}
	if !strings.Contains(text, "coin:") {
		t.Fatalf("open position missing:\n%s", text)
	}
	if strings.Contains(text, "CIRCUIT BREAKER") {
		t.Fatal("breaker warning must only show when halted")
	}

	// trip the breaker and the warning appears
	seedCash(t, l, models.PoolEcho, 1)
	seedCash(t, l, models.PoolNia, 1)
	if _, err := l.CheckCircuit(ctx, nil); err != nil {
		t.Fatal(err)
	}
	text, err = l.StatusText(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "CIRCUIT BREAKER OPEN") {
		t.Fatalf("breaker warning missing:\n%s", text)
	}
}
