package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pigeon_bot/internal/models"
)

// StatusText renders a human-readable pool summary for the /status
// command and the startup banner. Valuation uses entry prices; live
// marks are the tick's job, not the reporter's.
func (l *Ledger) StatusText(ctx context.Context) (string, error) {
	st, err := l.Load(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var totalCash, totalInvested float64

	for _, kind := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		pool := st.Pool(kind)
		fmt.Fprintf(&b, "[%s] cash %.2f, positions %d\n", kind, pool.Cash, len(pool.Positions))

		insts := make([]string, 0, len(pool.Positions))
		for inst := range pool.Positions {
			insts = append(insts, inst)
		}
		sort.Strings(insts)
		for _, inst := range insts {
			pos := pool.Positions[inst]
			fmt.Fprintf(&b, "  %s: %.6f @ %.4f, peak %.4f, held %dd\n",
				inst, pos.Amount, pos.EntryPrice, pos.HighestPrice, pos.DaysHeld(time.Now()))
			totalInvested += pos.Amount * pos.EntryPrice
		}
		totalCash += pool.Cash
	}

	fmt.Fprintf(&b, "total cash %.2f, invested at entry %.2f", totalCash, totalInvested)
	if l.Halted() {
		b.WriteString("\nCIRCUIT BREAKER OPEN: entries halted")
	}
	return b.String(), nil
}
