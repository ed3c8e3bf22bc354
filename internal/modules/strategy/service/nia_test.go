package service

import (
	"testing"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
)

func stagedNiaSnap(n int, price float64) *indicators.Snapshot {
	snap := flatSnap(n, price)
	last := n - 1
	snap.Drawdown[last] = 0.70
	snap.PriceVsHigh[last] = 0.80
	snap.VolSpikeRatio[last] = 1.2
	snap.SpreadCompression[last] = -0.30
	return snap
}

func qualityMeta() models.Candidate {
	return models.Candidate{
		Instrument:     "sleeper",
		Symbol:         "slp",
		DevScore:       65,
		CommunityScore: 60,
	}
}

func TestNiaMetadataGatesComeFirst(t *testing.T) {
	s := NewNarrativeIgnition(DefaultNiaParams())
	snap := stagedNiaSnap(100, 2)

	lowDev := qualityMeta()
	lowDev.DevScore = 30
	rep := s.Evaluate(Input{Snapshot: snap, Regime: bullRegime(), Meta: lowDev, Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("dead project: want HOLD, got %s", rep.Signal)
	}

	noComm := qualityMeta()
	noComm.CommunityScore = 10
	rep = s.Evaluate(Input{Snapshot: snap, Regime: bullRegime(), Meta: noComm, Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("no community: want HOLD, got %s", rep.Signal)
	}
}

func TestNiaFundingPanicFreezesEntries(t *testing.T) {
	s := NewNarrativeIgnition(DefaultNiaParams())
	panicked := bullRegime()
	panicked.FundingSafe = false

	rep := s.Evaluate(Input{Snapshot: stagedNiaSnap(100, 2), Regime: panicked, Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("funding panic: want HOLD on entry, got %s (%s)", rep.Signal, rep.Reason)
	}

	// open positions keep riding and still take the target
	pos := &models.Position{Instrument: "sleeper", EntryPrice: 10, Amount: 1, OpenedAt: testNow.AddDate(0, 0, -30)}
	rep = s.Evaluate(Input{Snapshot: flatSnap(100, 41), Position: pos, Regime: panicked, Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("funding panic must not block the exit, got %s", rep.Signal)
	}
}

func TestNiaEntry(t *testing.T) {
	s := NewNarrativeIgnition(DefaultNiaParams())

	rep := s.Evaluate(Input{Snapshot: stagedNiaSnap(100, 2), Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalBuy {
		t.Fatalf("gated deep value: want BUY, got %s (%s)", rep.Signal, rep.Reason)
	}

	// a pump print disqualifies the volume as organic
	pumped := stagedNiaSnap(100, 2)
	pumped.VolSpikeRatio[99] = 6.0
	rep = s.Evaluate(Input{Snapshot: pumped, Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("pump print: want HOLD, got %s", rep.Signal)
	}

	// near the recent high is chasing, not accumulating
	chasing := stagedNiaSnap(100, 2)
	chasing.PriceVsHigh[99] = 0.99
	rep = s.Evaluate(Input{Snapshot: chasing, Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("chasing: want HOLD, got %s", rep.Signal)
	}

	// without compression the entry needs a strong dev score
	loose := stagedNiaSnap(100, 2)
	loose.SpreadCompression[99] = 0.10
	rep = s.Evaluate(Input{Snapshot: loose, Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("no compression, dev 65: want HOLD, got %s", rep.Signal)
	}
	strong := qualityMeta()
	strong.DevScore = 80
	rep = s.Evaluate(Input{Snapshot: loose, Regime: bullRegime(), Meta: strong, Now: testNow})
	if rep.Signal != models.SignalBuy {
		t.Fatalf("no compression but dev 80: want BUY, got %s", rep.Signal)
	}
}

func TestNiaNeverStopsOut(t *testing.T) {
	s := NewNarrativeIgnition(DefaultNiaParams())
	pos := &models.Position{Instrument: "sleeper", EntryPrice: 10, Amount: 1, OpenedAt: testNow.AddDate(0, 0, -200)}

	// down 80% and it still rides
	rep := s.Evaluate(Input{Snapshot: flatSnap(100, 2), Position: pos, Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("-80%%: want HOLD (no stop by contract), got %s", rep.Signal)
	}

	// 4x is past the 3x target
	rep = s.Evaluate(Input{Snapshot: flatSnap(100, 41), Position: pos, Regime: bullRegime(), Meta: qualityMeta(), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("4.1x: want SELL at ignition target, got %s", rep.Signal)
	}
}
