package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

type AamrParams struct {
	RSIBuy        float64
	RSIBullBuy    float64 // looser pullback threshold while trending
	RSIExtreme    float64
	VolThreshold  float64 // returns-volatility gate for bear entries
	BullTarget    float64
	ScalpTarget   float64
	ScalpHighVol  float64
	HardStop      float64

	// Flash variant: lower-band knife catch with an ATR-spike filter and a
	// trailing exit instead of the standard targets.
	Flash       bool
	FlashATRPct float64
	FlashTrailK float64
}

func DefaultAamrParams() AamrParams {
	return AamrParams{
		RSIBuy:       35,
		RSIBullBuy:   55,
		RSIExtreme:   85,
		VolThreshold: 0.05,
		BullTarget:   0.50,
		ScalpTarget:  0.15,
		ScalpHighVol: 0.20,
		HardStop:     0.10,
		FlashATRPct:  0.03,
		FlashTrailK:  2.0,
	}
}

// AdaptiveMeanReversion switches posture on the SMA50/SMA200 trend: in a
// bull trend it buys any pullback and lets winners run; in a bear it only
// scalps high-volatility oversold panics.
type AdaptiveMeanReversion struct {
	p AamrParams
}

func NewAdaptiveMeanReversion(p AamrParams) *AdaptiveMeanReversion {
	return &AdaptiveMeanReversion{p: p}
}

func (s *AdaptiveMeanReversion) Name() string {
	if s.p.Flash {
		return string(models.KindAdaptiveMeanRevert) + "_flash"
	}
	return string(models.KindAdaptiveMeanRevert)
}

// MinPeriods covers the slow SMA.
func (s *AdaptiveMeanReversion) MinPeriods() int { return 200 }

func (s *AdaptiveMeanReversion) Evaluate(in Input) models.SignalReport {
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
	if math.IsNaN(row.SMAFast) || math.IsNaN(row.SMASlow) || math.IsNaN(row.RSI) {
		return hold(inst, "indicators not ready")
	}

	bull := row.SMAFast > row.SMASlow
	highVol := !math.IsNaN(row.Volatility) && row.Volatility > s.p.VolThreshold

	if in.Position == nil {
		if s.p.Flash {
			if !math.IsNaN(row.BBLower) && !math.IsNaN(row.ATRPct) &&
				price < row.BBLower && row.ATRPct > s.p.FlashATRPct {
				return models.SignalReport{
					Instrument: inst, Signal: models.SignalBuy, Price: price,
					Reason: fmt.Sprintf("flash: below band, atr%%=%.3f", row.ATRPct),
				}
			}
			return hold(inst, "no flash setup")
		}
		if bull && row.RSI < s.p.RSIBullBuy {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalBuy, Price: price,
				Reason: fmt.Sprintf("bull pullback rsi=%.0f", row.RSI),
			}
		}
		if !bull && highVol && row.RSI < s.p.RSIBuy {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalBuy, Price: price,
				Reason: fmt.Sprintf("panic scalp rsi=%.0f vol=%.3f", row.RSI, row.Volatility),
			}
		}
		return hold(inst, "no setup")
	}

	pos := in.Position
	pnl := pnlFrac(price, pos.EntryPrice)

	if s.p.Flash {
		peak := trailingHigh(pos)
		if trailingStopHit(price, peak, row.ATR, s.p.FlashTrailK, 0.10) {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("flash trail %.1fxATR from %.6f", s.p.FlashTrailK, peak),
			}
		}
	} else if bull {
		if pnl > s.p.BullTarget || row.RSI > s.p.RSIExtreme {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("bull exit pnl=%+.0f%% rsi=%.0f", pnl*100, row.RSI),
			}
		}
	} else {
		target := s.p.ScalpTarget
		if highVol {
			target = s.p.ScalpHighVol
		}
		if pnl >= target {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("scalp target %+.0f%%", pnl*100),
			}
		}
	}

	// Universal safety net.
	if pnl <= -s.p.HardStop {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalSell, Price: price,
			Reason: fmt.Sprintf("hard stop %+.0f%%", pnl*100),
		}
	}
	return hold(inst, "holding")
}
