package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	mdservice "pigeon_bot/internal/modules/marketdata/service"
	"pigeon_bot/internal/models"
)

type fakeMarket struct {
	listings []mdservice.Listing
	meta     map[string]mdservice.CoinMeta
	err      error
}

func (f *fakeMarket) Markets(context.Context, int) ([]mdservice.Listing, error) {
	return f.listings, f.err
}

func (f *fakeMarket) CoinMeta(_ context.Context, instrument string) (mdservice.CoinMeta, error) {
	m, ok := f.meta[instrument]
	if !ok {
		return mdservice.CoinMeta{}, errors.Errorf("no meta for %s", instrument)
	}
	return m, nil
}

type rejectSymbols map[string]bool

func (r rejectSymbols) IsSafe(_ context.Context, c models.Candidate) bool { return !r[c.Symbol] }

func testScreenerParams(watchlist string) Params {
	return Params{
		TopN:           100,
		MinVolumeUSD:   100_000,
		MinDipPct:      50,
		MinAgeYears:    2,
		MaxCandidates:  10,
		FlashCrashDrop: -40,
		WatchlistFile:  watchlist,
	}
}

func listing(id string, volume, ath, change30 float64, cap float64) mdservice.Listing {
	return mdservice.Listing{
		ID:           id,
		Symbol:       id,
		CurrentPrice: 1,
		MarketCap:    cap,
		TotalVolume:  volume,
		ATHChangePct: ath,
		Change30d:    change30,
	}
}

func TestScreenFilters(t *testing.T) {
	src := &fakeMarket{
		listings: []mdservice.Listing{
			listing("deep-dip", 5e6, -80, -5, 2e9),     // passes on dip
			listing("flash", 5e6, -30, -45, 3e8),       // passes on 30d crash
			listing("shallow", 5e6, -20, -5, 2e9),      // neither gate
			listing("illiquid", 50_000, -80, -5, 2e9),  // volume floor
			listing("too-young", 5e6, -80, -5, 2e9),    // age gate
			listing("meta-missing", 5e6, -80, -5, 2e9), // meta fetch fails, skipped
		},
		meta: map[string]mdservice.CoinMeta{
			"deep-dip":  {ID: "deep-dip", AgeYears: 5, DevScore: 60},
			"flash":     {ID: "flash", AgeYears: 3},
			"shallow":   {ID: "shallow", AgeYears: 5},
			"too-young": {ID: "too-young", AgeYears: 0.5},
		},
	}

	s := NewScreener(src, nil, testScreenerParams(""))
	out, err := s.Screen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 candidates, got %d: %+v", len(out), out)
	}

	deep, flash := out[0], out[1]
	if deep.Instrument != "deep-dip" || deep.Tier != models.TierMid || deep.DipPct != 80 || deep.FlashCrash {
		t.Fatalf("deep-dip candidate wrong: %+v", deep)
	}
	if deep.DevScore != 60 {
		t.Fatalf("metadata scores must carry through, got %+v", deep)
	}
	if flash.Instrument != "flash" || flash.Tier != models.TierLowerMid || !flash.FlashCrash {
		t.Fatalf("flash candidate wrong: %+v", flash)
	}
}

func TestScreenSafetyGate(t *testing.T) {
	src := &fakeMarket{
		listings: []mdservice.Listing{
			listing("good", 5e6, -80, -5, 20e9),
			listing("trap", 5e6, -80, -5, 1e8),
		},
		meta: map[string]mdservice.CoinMeta{
			"good": {ID: "good", AgeYears: 5},
			"trap": {ID: "trap", AgeYears: 5},
		},
	}

	s := NewScreener(src, rejectSymbols{"trap": true}, testScreenerParams(""))
	out, err := s.Screen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Instrument != "good" {
		t.Fatalf("trap must be filtered, got %+v", out)
	}
	if out[0].Tier != models.TierLarge {
		t.Fatalf("20B cap is large tier, got %v", out[0].Tier)
	}
}

func writeWatchlist(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	doc := `candidates:
  - instrument: cardano
    symbol: ada
    tier: large
  - instrument: polkadot
    symbol: dot
    tier: mid
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScreenFallsBackToWatchlist(t *testing.T) {
	path := writeWatchlist(t)

	// dead listings feed
	s := NewScreener(&fakeMarket{err: errors.New("feed down")}, nil, testScreenerParams(path))
	out, err := s.Screen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Instrument != "cardano" || out[1].Symbol != "dot" {
		t.Fatalf("watchlist fallback wrong: %+v", out)
	}

	// live feed but nothing passes
	empty := &fakeMarket{listings: []mdservice.Listing{listing("shallow", 5e6, -10, -1, 2e9)}}
	s = NewScreener(empty, nil, testScreenerParams(path))
	out, err = s.Screen(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("empty screen must fall back to watchlist, got %+v", out)
	}
}
