package service

import (
	"fmt"
	"math"

	"pigeon_bot/internal/models"
)

type ScoredParams struct {
	BuyThreshold float64

	WDrawdown float64
	WSqueeze  float64
	WVolume   float64
	WRegime   float64
	WQuality  float64
	WChase    float64 // penalty for buying near a local top

	ProfitTarget float64
	HardStop     float64
	TrailK       float64
}

func DefaultScoredParams() ScoredParams {
	return ScoredParams{
		BuyThreshold: 2.5,
		WDrawdown:    1.0,
		WSqueeze:     1.0,
		WVolume:      1.0,
		WRegime:      0.5,
		WQuality:     0.5,
		WChase:       0.5,
		ProfitTarget: 0.40,
		HardStop:     0.15,
		TrailK:       2.0,
	}
}

// ScoredAccumulation replaces the hard boolean AND-gate with a weighted
// score: one weak factor is tolerated when the others are strong, and the
// sub-scores land in the report for tuning and monitoring.
type ScoredAccumulation struct {
	p ScoredParams
}

func NewScoredAccumulation(p ScoredParams) *ScoredAccumulation { return &ScoredAccumulation{p: p} }

func (s *ScoredAccumulation) Name() string { return string(models.KindScoredAccumulation) }

func (s *ScoredAccumulation) MinPeriods() int { return 200 }

func (s *ScoredAccumulation) Evaluate(in Input) models.SignalReport {
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
		pos := in.Position
		pnl := pnlFrac(price, pos.EntryPrice)
		if pnl >= s.p.ProfitTarget {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("profit target %+.0f%%", pnl*100),
			}
		}
		if pnl <= -s.p.HardStop {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("hard stop %+.0f%%", pnl*100),
			}
		}
		peak := trailingHigh(pos)
		if trailingStopHit(price, peak, row.ATR, s.p.TrailK, 0.10) {
			return models.SignalReport{
				Instrument: inst, Signal: models.SignalSell, Price: price,
				Reason: fmt.Sprintf("trail %.1fxATR from %.6f", s.p.TrailK, peak),
			}
		}
		return hold(inst, "holding")
	}

	scores := map[string]float64{}

	switch {
	case !math.IsNaN(row.Drawdown) && row.Drawdown >= 0.60:
		scores["drawdown"] = s.p.WDrawdown
	case !math.IsNaN(row.Drawdown) && row.Drawdown >= 0.50:
		scores["drawdown"] = s.p.WDrawdown * 0.5
	default:
		scores["drawdown"] = 0
	}

	switch {
	case !math.IsNaN(row.BBWidthRank) && row.BBWidthRank < 0.10:
		scores["squeeze"] = s.p.WSqueeze
	case !math.IsNaN(row.BBWidthRank) && row.BBWidthRank < 0.25:
		scores["squeeze"] = s.p.WSqueeze * 0.5
	default:
		scores["squeeze"] = 0
	}

	switch {
	case row.VolSignal:
		scores["volume"] = s.p.WVolume
	case row.VolRising:
		scores["volume"] = s.p.WVolume * 0.5
	default:
		scores["volume"] = 0
	}

	if in.Regime.MacroBullish {
		scores["regime"] = s.p.WRegime
	}

	var quality float64
	if in.Meta.DevScore >= 70 {
		quality += s.p.WQuality
	} else if in.Meta.DevScore >= 50 {
		quality += s.p.WQuality * 0.5
	}
	if in.Meta.CommunityScore >= 50 {
		quality += s.p.WQuality * 0.5
	}
	scores["quality"] = quality

	if !math.IsNaN(row.PriceVsHigh) && row.PriceVsHigh > 0.95 {
		scores["chase_penalty"] = -s.p.WChase
	}

	var total float64
	for _, v := range scores {
		total += v
	}
	scores["total"] = total

	if total >= s.p.BuyThreshold {
		return models.SignalReport{
			Instrument: inst, Signal: models.SignalBuy, Price: price,
			Reason: fmt.Sprintf("score %.2f >= %.2f", total, s.p.BuyThreshold),
			Scores: scores,
		}
	}
	rep := hold(inst, fmt.Sprintf("score %.2f < %.2f", total, s.p.BuyThreshold))
	rep.Scores = scores
	return rep
}
