package service

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	mdservice "pigeon_bot/internal/modules/marketdata/service"
	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// Params are the screening gates. Percent fields are positive magnitudes
// (MinDipPct 50 means "at least 50% under the all-time high").
type Params struct {
	TopN           int
	MinVolumeUSD   float64
	MinDipPct      float64
	MinAgeYears    float64
	MaxCandidates  int
	FlashCrashDrop float64 // 30d change gate, negative, e.g. -40
	WatchlistFile  string
}

// MarketSource is the slice of the market data client the screener uses.
type MarketSource interface {
	Markets(ctx context.Context, topN int) ([]mdservice.Listing, error)
	CoinMeta(ctx context.Context, instrument string) (mdservice.CoinMeta, error)
}

// Safety is the honeypot-style gate. Implementations answer "would a sell
// of this instrument clear"; unknown is reported as safe so the gate only
// removes confirmed traps.
type Safety interface {
	IsSafe(ctx context.Context, c models.Candidate) bool
}

// Screener builds the candidate whitelist: deeply dipped, old enough,
// liquid enough coins out of the top of the market.
type Screener struct {
	src    MarketSource
	safety Safety
	params Params
}

func NewScreener(src MarketSource, safety Safety, params Params) *Screener {
	if safety == nil {
		safety = allowAll{}
	}
	return &Screener{src: src, safety: safety, params: params}
}

// Screen returns at most MaxCandidates candidates. A dead listings feed
// falls back to the static watchlist so the bot keeps ticking on its
// last known universe.
func (s *Screener) Screen(ctx context.Context) ([]models.Candidate, error) {
	listings, err := s.src.Markets(ctx, s.params.TopN)
	if err != nil {
		logger.Warn("screener: listings unavailable, using watchlist: %v", err)
		return s.watchlist()
	}

	out := make([]models.Candidate, 0, s.params.MaxCandidates)
	for _, l := range listings {
		if len(out) >= s.params.MaxCandidates {
			break
		}
		if l.TotalVolume < s.params.MinVolumeUSD || l.CurrentPrice <= 0 {
			continue
		}

		dip := -l.ATHChangePct // ath_change_percentage is negative
		flash := l.Change30d <= s.params.FlashCrashDrop
		if dip < s.params.MinDipPct && !flash {
			continue
		}

		meta, err := s.src.CoinMeta(ctx, l.ID)
		if err != nil {
			logger.Warn("screener: meta for %s failed, skipping: %v", l.ID, err)
			continue
		}
		if meta.AgeYears < s.params.MinAgeYears {
			continue
		}

		cand := models.Candidate{
			Instrument:     l.ID,
			Symbol:         l.Symbol,
			Tier:           tierFor(l.MarketCap),
			DevScore:       meta.DevScore,
			CommunityScore: meta.CommunityScore,
			AgeYears:       meta.AgeYears,
			DipPct:         dip,
			FlashCrash:     flash,
		}
		if !s.safety.IsSafe(ctx, cand) {
			logger.Warn("screener: %s rejected by safety gate", l.ID)
			continue
		}
		out = append(out, cand)
	}

	if len(out) == 0 {
		logger.Warn("screener: nothing passed the gates, using watchlist")
		return s.watchlist()
	}
	return out, nil
}

func tierFor(marketCap float64) models.CandidateTier {
	switch {
	case marketCap >= 10e9:
		return models.TierLarge
	case marketCap >= 1e9:
		return models.TierMid
	case marketCap >= 250e6:
		return models.TierLowerMid
	default:
		return models.TierSmall
	}
}

// watchlist loads the static yaml universe used when the screener cannot
// produce a live one.
func (s *Screener) watchlist() ([]models.Candidate, error) {
	raw, err := os.ReadFile(s.params.WatchlistFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read watchlist %s", s.params.WatchlistFile)
	}
	var doc struct {
		Candidates []models.Candidate `yaml:"candidates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse watchlist %s", s.params.WatchlistFile)
	}
	if len(doc.Candidates) > s.params.MaxCandidates {
		doc.Candidates = doc.Candidates[:s.params.MaxCandidates]
	}
	return doc.Candidates, nil
}

type allowAll struct{}

func (allowAll) IsSafe(context.Context, models.Candidate) bool { return true }
