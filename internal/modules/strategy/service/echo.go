package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

// EchoParams tune the conservative rebound pool. Thresholds are tunable;
// the shape (squeeze + deep value + volume confirmation in, staged
// trailing exits out) is the contract.
type EchoParams struct {
	MinDrawdown  float64 // deep-value filter
	SqueezeRank  float64 // bb width percentile below which we call a squeeze
	ProfitTarget float64 // hard take-profit, checked before any stop
	MacroGated   bool    // skip entries in a bear regime

	// Staged exits: thresholds tighten as the position ages.
	YoungDays     int
	ProvingDays   int
	MatureDays    int
	YoungStop     float64 // hard stop while young (fraction below entry)
	ProvingStop   float64
	MatureStop    float64
	YoungTrailK   float64 // ATR multiples below the trailing high
	ProvingTrailK float64
	MatureTrailK  float64
	ExpiredMinPnl float64 // expired positions below this get force-closed
}

func DefaultEchoParams() EchoParams {
	return EchoParams{
		MinDrawdown:   0.60,
		SqueezeRank:   0.10,
		ProfitTarget:  0.40,
		MacroGated:    true,
		YoungDays:     7,
		ProvingDays:   30,
		MatureDays:    90,
		YoungStop:     0.25,
		ProvingStop:   0.20,
		MatureStop:    0.15,
		YoungTrailK:   3.0,
		ProvingTrailK: 2.5,
		MatureTrailK:  1.5,
		ExpiredMinPnl: 0.10,
	}
}

// EchoRebound buys deep-drawdown assets whose volatility band has
// compressed to the bottom of its own history while volume confirms
// accumulation, and manages exits with age-staged trailing stops: a young
// position gets a wide stop and is allowed to sit negative, an old one
// must already be profitable or is force-closed.
type EchoRebound struct {
	p EchoParams
}

func NewEchoRebound(p EchoParams) *EchoRebound { return &EchoRebound{p: p} }

func (s *EchoRebound) Name() string { return string(models.KindEchoRebound) }

// MinPeriods covers the width-rank lookback on top of the band window.
func (s *EchoRebound) MinPeriods() int { return 200 }

func (s *EchoRebound) Evaluate(in Input) models.SignalReport {
	snap := in.Snapshot
	inst := in.Meta.Instrument
	if !snap.Ready(s.MinPeriods()) {
		return hold(inst, "insufficient history")
	}
	row := snap.Last()
	price := row.Price
	if math.IsNaN(price) || price <= 0 {
		return hold(inst, "no price")
	}

	if in.Position != nil {
		return s.exit(in, row.ATR, price)
	}

	// FLAT -> OPEN needs the full conjunction.
	if math.IsNaN(row.Drawdown) || math.IsNaN(row.BBWidthRank) || math.IsNaN(row.BBMid) {
		return hold(inst, "indicators not ready")
	}
	if s.p.MacroGated && !in.Regime.MacroBullish {
		return hold(inst, "bear regime")
	}
	deep := row.Drawdown > s.p.MinDrawdown
	squeeze := row.BBWidthRank < s.p.SqueezeRank
	reclaiming := price > row.BBMid
	confirmed := row.VolSignal

	if deep && squeeze && reclaiming && confirmed {
		return models.SignalReport{
			Instrument: inst,
			Signal:     models.SignalBuy,
			Price:      price,
			Reason: fmt.Sprintf("dd=%.2f rank=%.3f width=%.4f vol_ratio=%.2f",
				row.Drawdown, row.BBWidthRank, row.BBWidth, row.VolRatio),
		}
	}
	return hold(inst, "entry conjunction not met")
}

func (s *EchoRebound) exit(in Input, atr, price float64) models.SignalReport {
	pos := in.Position
	inst := in.Meta.Instrument
	pnl := pnlFrac(price, pos.EntryPrice)

	// Profit target first: lock in gains over deeper analysis.
	if pnl >= s.p.ProfitTarget {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("profit target +%.0f%%", pnl*100),
		}
	}

	days := pos.DaysHeld(in.Now)
	stop, trailK := s.p.MatureStop, s.p.MatureTrailK
	switch {
	case days < s.p.YoungDays:
		stop, trailK = s.p.YoungStop, s.p.YoungTrailK
	case days < s.p.ProvingDays:
		stop, trailK = s.p.ProvingStop, s.p.ProvingTrailK
	}

	if days >= s.p.MatureDays && pnl < s.p.ExpiredMinPnl {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("expired after %dd at %+.1f%%", days, pnl*100),
		}
	}
	if pnl <= -stop {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("hard stop %.0f%% (%dd held)", stop*100, days),
		}
	}
	peak := trailingHigh(pos)
	if trailingStopHit(price, peak, atr, trailK, 0.10) {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("trail %.1fxATR from peak %.6f", trailK, peak),
		}
	}
	return hold(inst, "holding")
}
