package service

import (
	"context"
	"math"
	"sync"
	"time"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

const (
	trendWindow = 140 // daily SMA the benchmark is judged against
	panicWindow = 7
	panicDrop   = -0.20 // 7d benchmark return below this flips funding unsafe

	bearMultiplier = 0.5
)

// SeriesSource is the slice of the market data client the provider needs.
type SeriesSource interface {
	DailySeries(ctx context.Context, instrument string, days int) (models.Series, error)
}

// Provider derives the shared macro regime from one benchmark asset.
// The verdict is cached for the TTL; on fetch failure it degrades to the
// neutral regime so a dead benchmark feed never blocks the tick.
type Provider struct {
	src       SeriesSource
	benchmark string
	ttl       time.Duration

	mu      sync.Mutex
	cached  models.Regime
	fetched time.Time
}

func NewProvider(src SeriesSource, benchmark string, ttl time.Duration) *Provider {
	return &Provider{src: src, benchmark: benchmark, ttl: ttl}
}

// Current returns the regime for this tick.
func (p *Provider) Current(ctx context.Context) models.Regime {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.fetched.IsZero() && time.Since(p.fetched) < p.ttl {
		return p.cached
	}

	series, err := p.src.DailySeries(ctx, p.benchmark, 365)
	if err != nil {
		logger.Warn("regime: benchmark %s unavailable, holding neutral: %v", p.benchmark, err)
		return models.NeutralRegime()
	}

	p.cached = Classify(series)
	p.fetched = time.Now()
	return p.cached
}

// Classify turns a benchmark series into a regime verdict. Too little
// history for the trend window reads as neutral.
func Classify(series models.Series) models.Regime {
	prices := series.Prices()
	if len(prices) < trendWindow {
		return models.NeutralRegime()
	}

	sma := indicators.RollingMean(prices, trendWindow)
	last := prices[len(prices)-1]
	trend := sma[len(sma)-1]

	bullish := !math.IsNaN(trend) && last > trend

	fundingSafe := true
	if len(prices) > panicWindow {
		prev := prices[len(prices)-1-panicWindow]
		if prev > 0 && (last-prev)/prev < panicDrop {
			fundingSafe = false
		}
	}

	mult := 1.0
	if !bullish {
		mult = bearMultiplier
	}
	return models.Regime{
		MacroBullish:   bullish,
		FundingSafe:    fundingSafe,
		SizeMultiplier: mult,
	}
}
