package service

import (
	"math"
	"time"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
)

// Input is everything a strategy may look at on one evaluation. Position
// is nil when the pool is flat on the instrument.
type Input struct {
	Snapshot *indicators.Snapshot
	Position *models.Position
	Regime   models.Regime
	Meta     models.Candidate
	Now      time.Time
}

// Strategy converts one instrument's indicator snapshot into a verdict.
// Implementations are pure with respect to ledger state: they read the
// open position, they never mutate it.
type Strategy interface {
	Name() string
	// MinPeriods is the history floor below which Evaluate always holds.
	MinPeriods() int
	Evaluate(in Input) models.SignalReport
}

func hold(instrument, reason string) models.SignalReport {
	return models.SignalReport{Instrument: instrument, Signal: models.SignalHold, Reason: reason}
}

// trailingHigh resolves the high-water mark, falling back to the entry
// price on the first evaluation of a freshly loaded position.
func trailingHigh(pos *models.Position) float64 {
	if pos.HighestPrice > 0 {
		return pos.HighestPrice
	}
	return pos.EntryPrice
}

// pnlFrac is the fractional gain over entry; percentages are fractions
// throughout (0.20 = 20%).
func pnlFrac(price, entry float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (price - entry) / entry
}

// trailingStopHit checks price against peak minus k*ATR. When ATR is NaN
// or zero the distance falls back to fallbackFrac of the peak.
func trailingStopHit(price, peak, atr, k, fallbackFrac float64) bool {
	dist := k * atr
	if math.IsNaN(atr) || atr == 0 {
		dist = peak * fallbackFrac
	}
	return price < peak-dist
}
