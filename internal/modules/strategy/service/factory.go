package service

import (
	"fmt"

	"pigeon_bot/internal/models"
)

// New builds a strategy by kind with its default parameters. Selection
// happens once per pool at construction, never per call.
func New(kind models.StrategyKind) (Strategy, error) {
	switch kind {
	case models.KindEchoRebound:
		return NewEchoRebound(DefaultEchoParams()), nil
	case models.KindNarrativeIgnition:
		return NewNarrativeIgnition(DefaultNiaParams()), nil
	case models.KindAdaptiveMeanRevert:
		return NewAdaptiveMeanReversion(DefaultAamrParams()), nil
	case models.KindCapitulationVortex:
		return NewCapitulationVortex(DefaultCvhParams()), nil
	case models.KindLiquidityErosion:
		return NewLiquidityErosion(DefaultLerParams()), nil
	case models.KindScoredAccumulation:
		return NewScoredAccumulation(DefaultScoredParams()), nil
	}
	return nil, fmt.Errorf("no strategy for kind %q", kind)
}
