package models

import "fmt"

// Signal is a strategy verdict for one instrument on one tick.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// StrategyKind selects a strategy implementation once per pool at
// construction, not per call.
type StrategyKind string

const (
	KindEchoRebound        StrategyKind = "echo_rebound"
	KindNarrativeIgnition  StrategyKind = "narrative_ignition"
	KindAdaptiveMeanRevert StrategyKind = "adaptive_mean_reversion"
	KindCapitulationVortex StrategyKind = "capitulation_vortex"
	KindLiquidityErosion   StrategyKind = "liquidity_erosion"
	KindScoredAccumulation StrategyKind = "scored_accumulation"
)

// ParseStrategyKind validates a configured kind string.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch StrategyKind(s) {
	case KindEchoRebound, KindNarrativeIgnition, KindAdaptiveMeanRevert,
		KindCapitulationVortex, KindLiquidityErosion, KindScoredAccumulation:
		return StrategyKind(s), nil
	}
	return "", fmt.Errorf("unknown strategy kind %q", s)
}

// SignalReport carries a signal plus the sub-scores that produced it, for
// logging and notification.
type SignalReport struct {
	Instrument string
	Signal     Signal
	Price      float64
	Reason     string
	Scores     map[string]float64 // set by scoring strategies
}
