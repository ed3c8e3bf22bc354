// Package backtest replays daily history through a strategy and a
// throwaway in-memory ledger, producing an equity curve. Sizing, fees
// and dust rules are the live ones; only persistence is swapped out.
package backtest

import (
	"context"

	"github.com/pkg/errors"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
	portfolioservice "pigeon_bot/internal/modules/portfolio/service"
	regimeservice "pigeon_bot/internal/modules/regime/service"
	strategyservice "pigeon_bot/internal/modules/strategy/service"
)

type Config struct {
	Pool            models.PoolKind
	StartingCapital float64
	FeeRate         float64
	DustFloor       float64
	RiskFraction    float64
	MaxPositions    int
}

type Result struct {
	Instrument  string
	Days        int
	Trades      int
	Wins        int
	FinalEquity float64
	ROI         float64 // fraction over starting capital
	MaxDrawdown float64 // fraction off the curve peak
	Curve       []float64
}

// memStore keeps ledger state in memory for the duration of one replay.
type memStore struct {
	st portfolioservice.State
}

func (m *memStore) Load(context.Context) (portfolioservice.State, error) {
	if m.st == nil {
		m.st = portfolioservice.State{}
	}
	return m.st, nil
}

func (m *memStore) Save(_ context.Context, st portfolioservice.State) error {
	m.st = st
	return nil
}

func (m *memStore) Snapshot(context.Context, portfolioservice.State, string) error { return nil }

// Run replays the series day by day. Each day sees only history up to
// itself; the regime is classified from the same series, which stands in
// for the benchmark when testing a single instrument.
func Run(ctx context.Context, series models.Series, strat strategyservice.Strategy, meta models.Candidate, cfg Config) (Result, error) {
	if err := series.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "input series")
	}
	if len(series) == 0 {
		return Result{}, errors.New("empty series")
	}

	split := 1.0
	if cfg.Pool == models.PoolNia {
		split = 0.0
	}
	ledger := portfolioservice.NewLedger(portfolioservice.Params{
		FeeRate:          cfg.FeeRate,
		DustFloor:        cfg.DustFloor,
		StartingCapital:  cfg.StartingCapital,
		EchoSplit:        split,
		CircuitBreakerAt: 0, // replays run to the end, the curve shows the damage
		Policies: map[models.PoolKind]portfolioservice.PoolPolicy{
			cfg.Pool: {RiskFraction: cfg.RiskFraction, MaxPositions: cfg.MaxPositions},
		},
	}, &memStore{}, nil)

	res := Result{Instrument: meta.Instrument, Days: len(series)}
	res.Curve = make([]float64, 0, len(series))

	for i := range series {
		window := series[:i+1]
		snap := indicators.Compute(window)
		price := window.Last().Price
		now := window.Last().Ts

		st, err := ledger.Load(ctx)
		if err != nil {
			return Result{}, err
		}
		pool := st.Pool(cfg.Pool)
		pos := pool.Positions[meta.Instrument]
		if pos != nil {
			if err := ledger.RatchetPeak(ctx, cfg.Pool, meta.Instrument, price); err != nil {
				return Result{}, err
			}
		}

		rep := strat.Evaluate(strategyservice.Input{
			Snapshot: snap,
			Position: pos,
			Regime:   regimeservice.Classify(window),
			Meta:     meta,
			Now:      now,
		})

		fill, err := ledger.ApplySignal(ctx, cfg.Pool, meta, rep.Signal, price, regimeservice.Classify(window), now)
		if err != nil && !isRejection(err) {
			return Result{}, errors.Wrapf(err, "day %d", i)
		}
		if fill != nil && fill.Side == models.SignalSell {
			res.Trades++
			if fill.RealizedPnL > 0 {
				res.Wins++
			}
		}

		st, _ = ledger.Load(ctx)
		equity := st.Pool(cfg.Pool).Equity(map[string]float64{meta.Instrument: price})
		res.Curve = append(res.Curve, equity)
	}

	res.FinalEquity = res.Curve[len(res.Curve)-1]
	if cfg.StartingCapital > 0 {
		res.ROI = (res.FinalEquity - cfg.StartingCapital) / cfg.StartingCapital
	}
	res.MaxDrawdown = maxDrawdown(res.Curve)
	return res, nil
}

func isRejection(err error) bool {
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

func maxDrawdown(curve []float64) float64 {
	var peak, worst float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
