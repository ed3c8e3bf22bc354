package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

type NiaParams struct {
	MinDevScore    float64
	MinCommunity   float64
	MinDrawdown    float64
	MaxPriceVsHigh float64 // anti-FOMO: refuse to chase a local top
	MaxSpikeRatio  float64 // organic-volume gate against pump prints
	CompressionAt  float64 // spread-compression entry gate
	StrongDev      float64 // dev score that waives the compression gate
	ProfitTarget   float64 // the only exit
}

func DefaultNiaParams() NiaParams {
	return NiaParams{
		MinDevScore:    50,
		MinCommunity:   50,
		MinDrawdown:    0.60,
		MaxPriceVsHigh: 0.95,
		MaxSpikeRatio:  5.0,
		CompressionAt:  -0.20,
		StrongDev:      70,
		ProfitTarget:   3.0,
	}
}

// NarrativeIgnition buys ignored infrastructure before the storytellers
// arrive: metadata-gated deep value with organic volume. It never stops
// out below entry: positions ride until the profit target, and drawdowns
// on the way are accepted in full.
type NarrativeIgnition struct {
	p NiaParams
}

func NewNarrativeIgnition(p NiaParams) *NarrativeIgnition { return &NarrativeIgnition{p: p} }

func (s *NarrativeIgnition) Name() string { return string(models.KindNarrativeIgnition) }

func (s *NarrativeIgnition) MinPeriods() int { return 50 }

func (s *NarrativeIgnition) Evaluate(in Input) models.SignalReport {
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
		pnl := pnlFrac(price, in.Position.EntryPrice)
		if pnl > s.p.ProfitTarget {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("ignition target %.1fx", 1+pnl),
			}
		}
		return hold(inst, "riding")
	}

	// A funding panic on the benchmark freezes speculative entries; open
	// positions keep riding.
	if !in.Regime.FundingSafe {
		return hold(inst, "funding unsafe")
	}

	// Metadata gates come first: a dead project or no community disqualifies
	// regardless of chart shape.
	if in.Meta.DevScore < s.p.MinDevScore {
		return hold(inst, "dev score too low")
	}
	if in.Meta.CommunityScore < s.p.MinCommunity {
		return hold(inst, "no community")
	}

	if math.IsNaN(row.Drawdown) || math.IsNaN(row.PriceVsHigh) {
		return hold(inst, "indicators not ready")
	}
	deep := row.Drawdown > s.p.MinDrawdown
	quiet := row.PriceVsHigh <= s.p.MaxPriceVsHigh
	organic := math.IsNaN(row.VolSpikeRatio) || row.VolSpikeRatio < s.p.MaxSpikeRatio
	tightening := !math.IsNaN(row.SpreadCompression) && row.SpreadCompression < s.p.CompressionAt

	if deep && quiet && organic && (tightening || in.Meta.DevScore > s.p.StrongDev) {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalBuy, Price: price,
			Reason: fmt.Sprintf("dd=%.2f dev=%.0f comm=%.0f spike=%.1f",
				row.Drawdown, in.Meta.DevScore, in.Meta.CommunityScore, row.VolSpikeRatio),
		}
	}
	return hold(inst, "entry conjunction not met")
}
