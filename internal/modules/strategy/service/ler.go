package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

type LerParams struct {
	MaxVolRank    float64 // volatility percentile below which the regime reads compressed
	MinDrawdown   float64
	VolFloorRatio float64 // volume vs its MA30 below which the book is dying

	ProfitTarget   float64 // full exit
	TrailArmAt     float64 // trailing stop activates only past this gain
	TrailK         float64 // ATR multiples below the trailing high
	HardStop       float64
	TimeStopDays   int
	TimeStopMinPnl float64 // held past TimeStopDays below this gets closed
}

func DefaultLerParams() LerParams {
	return LerParams{
		MaxVolRank:     0.25,
		MinDrawdown:    0.60,
		VolFloorRatio:  0.8,
		ProfitTarget:   1.50,
		TrailArmAt:     0.40,
		TrailK:         2.5,
		HardStop:       0.15,
		TimeStopDays:   120,
		TimeStopMinPnl: 0.20,
	}
}

// LiquidityErosion buys deep-drawdown assets whose realized volatility has
// sunk into the bottom quartile of its own half-year history while the
// volume floor holds: sellers exhausted, book intact. Exits are asymmetric:
// the ATR trail arms only after the position is well in profit, so early
// chop cannot shake out a position that has not yet paid for its risk.
type LiquidityErosion struct {
	p LerParams
}

func NewLiquidityErosion(p LerParams) *LiquidityErosion { return &LiquidityErosion{p: p} }

func (s *LiquidityErosion) Name() string { return string(models.KindLiquidityErosion) }

// MinPeriods covers the volatility-rank lookback on top of the returns
// window.
func (s *LiquidityErosion) MinPeriods() int { return 210 }

func (s *LiquidityErosion) Evaluate(in Input) models.SignalReport {
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

	if math.IsNaN(row.VolRank) || math.IsNaN(row.Drawdown) {
		return hold(inst, "indicators not ready")
	}
	compressed := row.VolRank < s.p.MaxVolRank
	deep := row.Drawdown > s.p.MinDrawdown
	// NaN spike ratio (no volume data) passes: the floor only rejects a
	// confirmed dying book.
	bookAlive := math.IsNaN(row.VolSpikeRatio) || row.VolSpikeRatio > s.p.VolFloorRatio

	if compressed && deep && bookAlive {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalBuy, Price: price,
			Reason: fmt.Sprintf("vol_rank=%.2f dd=%.2f spike=%.2f",
				row.VolRank, row.Drawdown, row.VolSpikeRatio),
		}
	}
	return hold(inst, "entry conjunction not met")
}

func (s *LiquidityErosion) exit(in Input, atr, price float64) models.SignalReport {
	pos := in.Position
	inst := in.Meta.Instrument
	pnl := pnlFrac(price, pos.EntryPrice)

	if pnl >= s.p.ProfitTarget {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("erosion target %.1fx", 1+pnl),
		}
	}

	// The trail arms only once the position has run; peak distance to
	// entry tells whether it ever did.
	peak := trailingHigh(pos)
	armed := pnlFrac(peak, pos.EntryPrice) >= s.p.TrailArmAt
	if armed && trailingStopHit(price, peak, atr, s.p.TrailK, 0.10) {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("armed trail %.1fxATR from peak %.6f", s.p.TrailK, peak),
		}
	}

	if pnl <= -s.p.HardStop {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("hard stop %.0f%%", s.p.HardStop*100),
		}
	}

	days := pos.DaysHeld(in.Now)
	if days >= s.p.TimeStopDays && pnl < s.p.TimeStopMinPnl {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("time stop after %dd at %+.1f%%", days, pnl*100),
		}
	}
	return hold(inst, "holding")
}
