package service

import (
	"testing"

	"pigeon_bot/internal/indicators"
	"pigeon_bot/internal/models"
)

func stagedLerSnap(n int, price float64) *indicators.Snapshot {
	snap := flatSnap(n, price)
	last := n - 1
	snap.VolRank[last] = 0.10
	snap.Drawdown[last] = 0.70
	snap.VolSpikeRatio[last] = 0.95
	return snap
}

func lerPosition(entry, peak float64, daysHeld int) *models.Position {
	return &models.Position{
		Instrument:   "eroded",
		EntryPrice:   entry,
		Amount:       1,
		HighestPrice: peak,
		OpenedAt:     testNow.AddDate(0, 0, -daysHeld),
	}
}

func TestLerEntryConjunction(t *testing.T) {
	s := NewLiquidityErosion(DefaultLerParams())

	rep := s.Evaluate(Input{Snapshot: stagedLerSnap(250, 5), Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalBuy {
		t.Fatalf("compressed deep value: want BUY, got %s (%s)", rep.Signal, rep.Reason)
	}

	// volatility not in the bottom quartile
	hot := stagedLerSnap(250, 5)
	hot.VolRank[249] = 0.60
	rep = s.Evaluate(Input{Snapshot: hot, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("vol rank 0.60: want HOLD, got %s", rep.Signal)
	}

	// shallow drawdown
	shallow := stagedLerSnap(250, 5)
	shallow.Drawdown[249] = 0.30
	rep = s.Evaluate(Input{Snapshot: shallow, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("drawdown 0.30: want HOLD, got %s", rep.Signal)
	}

	// a dying book fails the volume floor
	dying := stagedLerSnap(250, 5)
	dying.VolSpikeRatio[249] = 0.5
	rep = s.Evaluate(Input{Snapshot: dying, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("volume at half its MA: want HOLD, got %s", rep.Signal)
	}
}

func TestLerTrailArmsOnlyInProfit(t *testing.T) {
	s := NewLiquidityErosion(DefaultLerParams())

	// peak +20% over entry: trail unarmed, a dip under it must not sell
	unarmed := lerPosition(10, 12, 20)
	rep := s.Evaluate(Input{Snapshot: snapAtPrice(250, 9.0, 0.5), Position: unarmed, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("unarmed trail: want HOLD at -10%%, got %s (%s)", rep.Signal, rep.Reason)
	}

	// peak +50%: armed. Line is 15 - 2.5*0.5 = 13.75
	armed := lerPosition(10, 15, 20)
	rep = s.Evaluate(Input{Snapshot: snapAtPrice(250, 13.7, 0.5), Position: armed, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("13.7 under the armed trail line: want SELL, got %s (%s)", rep.Signal, rep.Reason)
	}
	rep = s.Evaluate(Input{Snapshot: snapAtPrice(250, 13.8, 0.5), Position: armed, Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("13.8 above the line: want HOLD, got %s", rep.Signal)
	}
}

func TestLerHardAndTimeStops(t *testing.T) {
	s := NewLiquidityErosion(DefaultLerParams())

	// -16% breaches the hard stop
	rep := s.Evaluate(Input{Snapshot: snapAtPrice(250, 8.4, 0.5), Position: lerPosition(10, 10, 10), Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("-16%%: want hard stop SELL, got %s (%s)", rep.Signal, rep.Reason)
	}

	// 130 days at +5% is dead money
	rep = s.Evaluate(Input{Snapshot: snapAtPrice(250, 10.5, 0.5), Position: lerPosition(10, 11, 130), Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("130d at +5%%: want time stop SELL, got %s (%s)", rep.Signal, rep.Reason)
	}
	// same age at +25% keeps riding
	rep = s.Evaluate(Input{Snapshot: snapAtPrice(250, 12.5, 0.5), Position: lerPosition(10, 13, 130), Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalHold {
		t.Fatalf("130d at +25%%: want HOLD, got %s (%s)", rep.Signal, rep.Reason)
	}

	// 2.6x takes the full target
	rep = s.Evaluate(Input{Snapshot: snapAtPrice(250, 26, 0.5), Position: lerPosition(10, 26, 60), Regime: bullRegime(), Meta: meta("eroded"), Now: testNow})
	if rep.Signal != models.SignalSell {
		t.Fatalf("2.6x: want target SELL, got %s (%s)", rep.Signal, rep.Reason)
	}
}
