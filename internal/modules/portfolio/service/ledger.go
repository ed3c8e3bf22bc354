package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pigeon_bot/internal/helper"
	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// Invariant violations are rejected as no-ops and reported with these
// sentinels; they never corrupt state.
var (
	ErrPositionExists   = errors.New("position already open for instrument")
	ErrNoPosition       = errors.New("no open position for instrument")
	ErrBelowDustFloor   = errors.New("bet size below dust floor")
	ErrInsufficientCash = errors.New("insufficient cash after fee")
	ErrPositionCap      = errors.New("pool at max concurrent positions")
	ErrCircuitOpen      = errors.New("circuit breaker open, entries halted")
)

// PoolPolicy is the per-pool risk posture the ledger sizes with.
type PoolPolicy struct {
	RiskFraction float64
	MaxPositions int
}

type Params struct {
	FeeRate          float64
	DustFloor        float64
	StartingCapital  float64
	EchoSplit        float64
	CircuitBreakerAt float64 // fraction of starting capital
	Policies         map[models.PoolKind]PoolPolicy
}

// Fill reports one executed (or simulated) trade.
type Fill struct {
	ID          string
	Pool        models.PoolKind
	Instrument  string
	Side        models.Signal
	Price       float64
	Amount      float64
	Fee         float64
	CashDelta   float64 // negative on BUY
	RealizedPnL float64 // SELL only
	Ts          time.Time
}

// Journal records fills durably, best-effort: a journal failure is logged
// and never blocks the ledger.
type Journal interface {
	Record(ctx context.Context, f Fill) error
}

// Ledger owns the cash/position state machine for all pools. Mutations are
// load-mutate-save per instrument: a killed tick resumes cleanly because
// every applied fill is already durable.
type Ledger struct {
	params  Params
	store   Store
	journal Journal

	halted bool // circuit breaker latch, cleared only by restart
}

func NewLedger(params Params, store Store, journal Journal) *Ledger {
	if journal == nil {
		journal = noopJournal{}
	}
	return &Ledger{params: params, store: store, journal: journal}
}

// Load reads the state, initializing missing pools to the configured
// split of starting capital.
func (l *Ledger) Load(ctx context.Context) (State, error) {
	st, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	l.ensurePools(st)
	return st, nil
}

func (l *Ledger) ensurePools(st State) {
	if _, ok := st[models.PoolEcho]; !ok {
		st[models.PoolEcho] = models.NewPool(l.params.StartingCapital * l.params.EchoSplit)
	}
	if _, ok := st[models.PoolNia]; !ok {
		st[models.PoolNia] = models.NewPool(l.params.StartingCapital * (1 - l.params.EchoSplit))
	}
	for _, k := range []models.PoolKind{models.PoolEcho, models.PoolNia} {
		st.Pool(k)
	}
}

func (l *Ledger) policy(kind models.PoolKind) PoolPolicy {
	if p, ok := l.params.Policies[kind]; ok {
		return p
	}
	return PoolPolicy{RiskFraction: 0.05, MaxPositions: 5}
}

// ApplySignal runs one signal against one instrument and persists the
// whole state before returning. HOLD is a no-op. Sizing scales with the
// regime multiplier.
func (l *Ledger) ApplySignal(
	ctx context.Context,
	kind models.PoolKind,
	meta models.Candidate,
	sig models.Signal,
	price float64,
	regime models.Regime,
	ts time.Time,
) (*Fill, error) {
	if sig == models.SignalHold {
		return nil, nil
	}
	if price <= 0 {
		return nil, errors.Errorf("non-positive price %.8f for %s", price, meta.Instrument)
	}

	st, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	pool := st.Pool(kind)

	var fill *Fill
	switch sig {
	case models.SignalBuy:
		fill, err = l.buy(pool, kind, meta, price, regime, ts)
	case models.SignalSell:
		fill, err = l.sell(pool, kind, meta.Instrument, price, ts)
	default:
		return nil, errors.Errorf("unknown signal %q", sig)
	}
	if err != nil {
		return nil, err
	}

	if err := l.store.Save(ctx, st); err != nil {
		return nil, errors.Wrap(err, "persist after fill")
	}
	if err := l.journal.Record(ctx, *fill); err != nil {
		logger.Warn("journal write failed for %s %s: %v", fill.Side, fill.Instrument, err)
	}
	return fill, nil
}

func (l *Ledger) buy(
	pool *models.Pool,
	kind models.PoolKind,
	meta models.Candidate,
	price float64,
	regime models.Regime,
	ts time.Time,
) (*Fill, error) {
	if l.halted {
		return nil, ErrCircuitOpen
	}
	inst := meta.Instrument
	if _, open := pool.Positions[inst]; open {
		logger.Warn("rejecting BUY %s/%s: position already open", kind, inst)
		return nil, ErrPositionExists
	}
	pol := l.policy(kind)
	if len(pool.Positions) >= pol.MaxPositions {
		return nil, ErrPositionCap
	}

	mult := regime.SizeMultiplier
	if mult <= 0 {
		mult = 1.0
	}
	bet := pool.Cash * pol.RiskFraction * mult
	if bet < l.params.DustFloor {
		return nil, ErrBelowDustFloor
	}
	fee := bet * l.params.FeeRate
	debit := bet + fee
	if debit > pool.Cash {
		return nil, ErrInsufficientCash
	}

	// The fee comes out of the purchased units as well: net invested is
	// bet*(1-fee_rate), so a zero-fee round trip is exactly cash-neutral.
	amount := bet * (1 - l.params.FeeRate) / price

	pool.Cash -= debit
	pool.Positions[inst] = &models.Position{
		Instrument:    inst,
		Symbol:        meta.Symbol,
		EntryPrice:    price,
		Amount:        amount,
		HighestPrice:  price,
		OpenedAt:      ts,
		RegimeAtEntry: regime.Label(),
		FeeMode:       models.FeeModeTaker,
	}

	return &Fill{
		ID:         uuid.NewString(),
		Pool:       kind,
		Instrument: inst,
		Side:       models.SignalBuy,
		Price:      price,
		Amount:     amount,
		Fee:        fee,
		CashDelta:  -debit,
		Ts:         ts,
	}, nil
}

func (l *Ledger) sell(
	pool *models.Pool,
	kind models.PoolKind,
	inst string,
	price float64,
	ts time.Time,
) (*Fill, error) {
	pos, open := pool.Positions[inst]
	if !open {
		logger.Warn("rejecting SELL %s/%s: no open position", kind, inst)
		return nil, ErrNoPosition
	}

	gross := pos.Amount * price
	fee := gross * l.params.FeeRate
	net := gross - fee
	pnl := net - pos.Amount*pos.EntryPrice

	pool.Cash += net
	delete(pool.Positions, inst)

	return &Fill{
		ID:          uuid.NewString(),
		Pool:        kind,
		Instrument:  inst,
		Side:        models.SignalSell,
		Price:       price,
		Amount:      pos.Amount,
		Fee:         fee,
		CashDelta:   net,
		RealizedPnL: helper.Round2(pnl),
		Ts:          ts,
	}, nil
}

// RatchetPeak persists trailing high-water-mark advances independently of
// BUY/SELL so a restart never loses trailing-stop accuracy.
func (l *Ledger) RatchetPeak(ctx context.Context, kind models.PoolKind, inst string, price float64) error {
	if price <= 0 {
		return nil
	}
	st, err := l.Load(ctx)
	if err != nil {
		return err
	}
	pos, ok := st.Pool(kind).Positions[inst]
	if !ok {
		return nil
	}
	if pos.Ratchet(price) {
		return l.store.Save(ctx, st)
	}
	return nil
}

// CheckCircuit compares total equity against the configured floor. Once
// tripped it latches: all new entries are rejected and the state is
// snapshotted for manual review.
func (l *Ledger) CheckCircuit(ctx context.Context, prices map[string]float64) (bool, error) {
	if l.halted {
		return true, nil
	}
	st, err := l.Load(ctx)
	if err != nil {
		return false, err
	}
	var equity float64
	for _, pool := range st {
		equity += pool.Equity(prices)
	}
	floor := l.params.StartingCapital * l.params.CircuitBreakerAt
	if equity < floor {
		l.halted = true
		suffix := fmt.Sprintf("breaker-%d", time.Now().Unix())
		if err := l.store.Snapshot(ctx, st, suffix); err != nil {
			logger.Error("breaker snapshot failed: %v", err)
		}
		logger.Error("CIRCUIT BREAKER: equity %.2f below floor %.2f, entries halted", equity, floor)
		return true, nil
	}
	return false, nil
}

// Halted reports the breaker latch.
func (l *Ledger) Halted() bool { return l.halted }

// AddFunds allocates fresh external capital across the pools and persists.
func (l *Ledger) AddFunds(ctx context.Context, echoAmt, niaAmt float64) error {
	if echoAmt < 0 || niaAmt < 0 {
		return errors.New("allocation must be non-negative")
	}
	st, err := l.Load(ctx)
	if err != nil {
		return err
	}
	st.Pool(models.PoolEcho).Cash += echoAmt
	st.Pool(models.PoolNia).Cash += niaAmt
	return l.store.Save(ctx, st)
}

// EmergencyFlush force-closes the n oldest positions of a pool at a
// haircut below entry, freeing slots and cash for manual recovery.
func (l *Ledger) EmergencyFlush(ctx context.Context, kind models.PoolKind, n int, haircut float64) (float64, error) {
	st, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}
	pool := st.Pool(kind)
	type aged struct {
		inst string
		pos  *models.Position
	}
	list := make([]aged, 0, len(pool.Positions))
	for inst, pos := range pool.Positions {
		list = append(list, aged{inst, pos})
	}
	// oldest first
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[j].pos.OpenedAt.Before(list[i].pos.OpenedAt) {
				list[i], list[j] = list[j], list[i]
			}
		}
	}
	if n > len(list) {
		n = len(list)
	}
	var proceeds float64
	for _, a := range list[:n] {
		p := a.pos.Amount * a.pos.EntryPrice * (1 - haircut)
		pool.Cash += p
		proceeds += p
		delete(pool.Positions, a.inst)
		logger.Warn("flushed %s/%s at %.0f%% haircut, returned %.2f", kind, a.inst, haircut*100, p)
	}
	if n > 0 {
		if err := l.store.Save(ctx, st); err != nil {
			return proceeds, err
		}
	}
	return proceeds, nil
}

type noopJournal struct{}

func (noopJournal) Record(context.Context, Fill) error { return nil }
