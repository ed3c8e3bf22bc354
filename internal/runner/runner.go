package runner

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
	"pigeon_bot/internal/modules/config"
	healthservice "pigeon_bot/internal/modules/health/service"
	mdservice "pigeon_bot/internal/modules/marketdata/service"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	pricestreamservice "pigeon_bot/internal/modules/pricestream/service"
	regimeservice "pigeon_bot/internal/modules/regime/service"
	screenerservice "pigeon_bot/internal/modules/screener/service"
	"pigeon_bot/internal/modules/strategy"
	"pigeon_bot/internal/notify"
	"pigeon_bot/pkg/logger"
)

const historyDays = 365

// RunContext carries every collaborator one tick needs. No package
// globals: two RunContexts (live bot and backtest harness) coexist in
// one process.
type RunContext struct {
	Cfg      *config.Config
	Market   *mdservice.Client
	Screener *screenerservice.Screener
	Regime   *regimeservice.Provider
	Book     strategy.Book
	Ledger   *portfolioservice.Ledger
	Stream   *pricestreamservice.Streamer // nil when streaming disabled
	Health   *healthservice.State
	Notifier notify.Notifier
}

// Pools resolves the configured mode into the pool evaluation order.
func (rc *RunContext) Pools() []models.PoolKind {
	switch rc.Cfg.Mode {
	case "echo":
		return []models.PoolKind{models.PoolEcho}
	case "nia":
		return []models.PoolKind{models.PoolNia}
	default:
		return []models.PoolKind{models.PoolEcho, models.PoolNia}
	}
}

// Tick runs one full evaluation pass: screen, classify the regime, check
// the breaker, then walk each pool's universe sequentially. Instruments
// fail individually; only a dead screener aborts the tick.
func (rc *RunContext) Tick(ctx context.Context) error {
	span := opentracing.GlobalTracer().StartSpan("tick")
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	now := time.Now().UTC()

	candidates, err := rc.Screener.Screen(ctx)
	if err != nil {
		tickErrors.Inc()
		return errors.Wrap(err, "screen")
	}
	regime := rc.Regime.Current(ctx)
	logger.Info("tick: %d candidates, regime %s (mult %.2f)", len(candidates), regime.Label(), regime.SizeMultiplier)

	st, err := rc.Ledger.Load(ctx)
	if err != nil {
		tickErrors.Inc()
		return errors.Wrap(err, "load state")
	}

	prices, err := rc.Market.SimplePrices(ctx, openInstruments(st))
	if err != nil {
		logger.Warn("tick: live prices unavailable, breaker marks at entry: %v", err)
		prices = map[string]float64{}
	}
	rc.updateEquity(st, prices)

	tripped, err := rc.Ledger.CheckCircuit(ctx, prices)
	if err != nil {
		tickErrors.Inc()
		return errors.Wrap(err, "circuit check")
	}
	rc.Health.SetBreakerOpen(rc.Ledger.Halted())
	if tripped && rc.Ledger.Halted() {
		rc.Notifier.Send("CIRCUIT BREAKER OPEN: new entries halted, exits still manage")
	}

	for _, kind := range rc.Pools() {
		rc.runPool(ctx, kind, candidates, regime, now)
	}

	rc.afterTick(ctx, now)
	ticksTotal.Inc()
	return nil
}

// runPool walks the pool's universe: every screened candidate plus every
// already open position, so exits keep managing instruments the screener
// has since dropped.
func (rc *RunContext) runPool(
	ctx context.Context,
	kind models.PoolKind,
	candidates []models.Candidate,
	regime models.Regime,
	now time.Time,
) {
	strat, ok := rc.Book[kind]
	if !ok {
		logger.Error("no strategy for pool %s", kind)
		return
	}

	universe := make([]models.Candidate, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		universe = append(universe, c)
		seen[c.Instrument] = true
	}
	st, err := rc.Ledger.Load(ctx)
	if err != nil {
		logger.Error("pool %s: load state: %v", kind, err)
		return
	}
	for inst, pos := range st.Pool(kind).Positions {
		if !seen[inst] {
			universe = append(universe, models.Candidate{Instrument: inst, Symbol: pos.Symbol})
		}
	}

	for _, cand := range universe {
		if err := rc.evaluateInstrument(ctx, kind, strat, cand, regime, now); err != nil {
			instrumentErrors.Inc()
			logger.Error("pool %s: %s: %v", kind, cand.Instrument, err)
		}
	}
}

func (rc *RunContext) afterTick(ctx context.Context, now time.Time) {
	st, err := rc.Ledger.Load(ctx)
	if err != nil {
		logger.Error("after tick: load state: %v", err)
		return
	}

	var open int
	subs := make([]pricestreamservice.Subscription, 0, 8)
	for _, kind := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		for inst, pos := range st.Pool(kind).Positions {
			open++
			subs = append(subs, pricestreamservice.Subscription{
				Pool:       kind,
				Instrument: inst,
				Symbol:     pos.Symbol,
			})
		}
	}
	rc.Health.SetOpenPositions(open)
	rc.Health.TouchTick(now)
	if rc.Stream != nil {
		rc.Stream.SetSubscriptions(subs)
	}
}

func (rc *RunContext) updateEquity(st portfolioservice.State, prices map[string]float64) {
	var equity float64
	for _, kind := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		equity += st.Pool(kind).Equity(prices)
	}
	equityGauge.Set(equity)
}

func openInstruments(st portfolioservice.State) []string {
	var out []string
	seen := map[string]bool{}
	for _, kind := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		for inst := range st.Pool(kind).Positions {
			if !seen[inst] {
				seen[inst] = true
				out = append(out, inst)
			}
		}
	}
	return out
}
