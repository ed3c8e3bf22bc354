package models

// Regime is the macro context shared by all instruments in one tick.
// Computed from a benchmark asset, never per-instrument.
type Regime struct {
	MacroBullish   bool    // benchmark above its medium-term trend
	FundingSafe    bool    // funding-rate sanity gate
	SizeMultiplier float64 // scales bet size, 1.0 = neutral
}

// Label is the short form stored on positions as regime_at_entry.
func (r Regime) Label() string {
	if r.MacroBullish {
		return "bull"
	}
	return "bear"
}

// NeutralRegime is what strategies see when the provider is unavailable:
// sizing unscaled, entries not macro-gated.
func NeutralRegime() Regime {
	return Regime{MacroBullish: true, FundingSafe: true, SizeMultiplier: 1.0}
}
