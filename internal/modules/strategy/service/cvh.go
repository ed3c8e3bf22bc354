package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

type CvhParams struct {
	MinDrawdown   float64
	MinNarrowing  float64 // intraday range must have compressed this much vs its 7d peak
	ExpansionExit float64 // range blowing out past this multiple of the 7d peak ends the vortex
}

func DefaultCvhParams() CvhParams {
	return CvhParams{
		MinDrawdown:   0.60,
		MinNarrowing:  0.20,
		ExpansionExit: 1.3,
	}
}

// CapitulationVortex trades the post-capitulation compression: deep value
// plus a sharply narrowing intraday range plus a narrative volume spike.
// It needs true OHLC data; on close-only proxy series the range columns
// are degenerate and it simply never fires.
type CapitulationVortex struct {
	p CvhParams
}

func NewCapitulationVortex(p CvhParams) *CapitulationVortex { return &CapitulationVortex{p: p} }

func (s *CapitulationVortex) Name() string { return string(models.KindCapitulationVortex) }

func (s *CapitulationVortex) MinPeriods() int { return 50 }

func (s *CapitulationVortex) Evaluate(in Input) models.SignalReport {
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
		// Volatility returning is the alpha-decay exit: the vacuum is gone.
		if !math.IsNaN(row.Range7Max) && row.Range7Max > 0 &&
			row.DailyRange > row.Range7Max*s.p.ExpansionExit {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("range expansion %.4f > %.1fx peak", row.DailyRange, s.p.ExpansionExit),
			}
		}
		return hold(inst, "vortex intact")
	}

	if math.IsNaN(row.Drawdown) || math.IsNaN(row.SpreadNarrowing) {
		return hold(inst, "indicators not ready")
	}
	deep := row.Drawdown > s.p.MinDrawdown
	tight := row.SpreadNarrowing > s.p.MinNarrowing
	if deep && tight && row.NarrativeSpike {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalBuy, Price: price,
			Reason: fmt.Sprintf("dd=%.2f narrowing=%.2f spike=%.1f",
				row.Drawdown, row.SpreadNarrowing, row.VolSpikeRatio),
		}
	}
	return hold(inst, "entry conjunction not met")
}
