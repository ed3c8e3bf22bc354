package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	strategyservice "pigeon_bot/internal/modules/strategy/service"
	"pigeon_bot/pkg/logger"
)

// evaluateInstrument runs one strategy over one instrument and applies
// the verdict. Ledger rejections of a verdict (dust, caps, breaker) are
// expected outcomes, not errors.
func (rc *RunContext) evaluateInstrument(
	ctx context.Context,
	kind models.PoolKind,
	strat strategyservice.Strategy,
	cand models.Candidate,
	regime models.Regime,
	now time.Time,
) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "evaluate")
	span.SetTag("pool", string(kind))
	span.SetTag("instrument", cand.Instrument)
	defer span.Finish()

	series, err := rc.Market.DailySeries(ctx, cand.Instrument, historyDays)
	if err != nil {
		return errors.Wrap(err, "series")
	}
	snap := indicators.Compute(series)
	price := snap.Last().Price
	if !(price > 0) {
		return errors.New("no usable last price")
	}

	st, err := rc.Ledger.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load state")
	}
	pos := st.Pool(kind).Positions[cand.Instrument]

	if pos != nil {
		if err := rc.Ledger.RatchetPeak(ctx, kind, cand.Instrument, price); err != nil {
			logger.Warn("%s/%s: peak ratchet: %v", kind, cand.Instrument, err)
		}
	}

	rep := strat.Evaluate(strategyservice.Input{
		Snapshot: snap,
		Position: pos,
		Regime:   regime,
		Meta:     cand,
		Now:      now,
	})
	signalsTotal.WithLabelValues(string(kind), string(rep.Signal)).Inc()
	span.SetTag("signal", string(rep.Signal))
	if rep.Signal != models.SignalHold {
		logger.Info("%s/%s: %s at %.4f (%s)", kind, cand.Instrument, rep.Signal, price, rep.Reason)
	}

	fill, err := rc.Ledger.ApplySignal(ctx, kind, cand, rep.Signal, price, regime, now)
	if err != nil {
		if rejection(err) {
			logger.Info("%s/%s: %s rejected: %v", kind, cand.Instrument, rep.Signal, err)
			return nil
		}
		return errors.Wrap(err, "apply signal")
	}
	if fill != nil {
		rc.announce(*fill, rep.Reason)
	}
	return nil
}

func rejection(err error) bool {
	for _, sentinel := range []error{
		portfolioservice.ErrPositionExists,
		portfolioservice.ErrNoPosition,
		portfolioservice.ErrBelowDustFloor,
		portfolioservice.ErrInsufficientCash,
		portfolioservice.ErrPositionCap,
		portfolioservice.ErrCircuitOpen,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (rc *RunContext) announce(f portfolioservice.Fill, reason string) {
	fillsTotal.WithLabelValues(string(f.Pool), string(f.Side)).Inc()
	switch f.Side {
	case models.SignalBuy:
		rc.Notifier.Sendf("BUY %s [%s]: %.6f @ %.4f, spent %.2f (%s)",
			f.Instrument, f.Pool, f.Amount, f.Price, -f.CashDelta, reason)
	case models.SignalSell:
		rc.Notifier.Sendf("SELL %s [%s]: %.6f @ %.4f, pnl %+.2f (%s)",
			f.Instrument, f.Pool, f.Amount, f.Price, f.RealizedPnL, reason)
	}
}
