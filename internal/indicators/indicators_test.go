package indicators

import (
	"math"
	"testing"
	"time"

	"pigeon_bot/internal/models"
)

func proxySeries(prices, volumes []float64) models.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, len(prices))
	for i := range ts {
		ts[i] = base.AddDate(0, 0, i)
	}
	return models.NewProxySeries(ts, prices, volumes)
}

func constSlice(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDrawdownFromRollingHigh(t *testing.T) {
	n := 200
	prices := constSlice(n, 100)
	for i := 190; i < n; i++ {
		prices[i] = 40
	}
	snap := Compute(proxySeries(prices, constSlice(n, 100)))

	dd := snap.Last().Drawdown
	if math.Abs(dd-0.60) > 1e-9 {
		t.Fatalf("want drawdown 0.60, got %v", dd)
	}

	flat := Compute(proxySeries(constSlice(n, 100), constSlice(n, 100)))
	if got := flat.Last().Drawdown; math.Abs(got) > 1e-9 {
		t.Fatalf("flat series: want drawdown 0, got %v", got)
	}
}

func TestShortSeriesYieldsNaN(t *testing.T) {
	n := 30
	snap := Compute(proxySeries(constSlice(n, 100), constSlice(n, 100)))
	row := snap.Last()
	if !math.IsNaN(row.Drawdown) {
		t.Fatalf("short series drawdown: want NaN, got %v", row.Drawdown)
	}
	if !math.IsNaN(row.BBWidthRank) {
		t.Fatalf("short series width rank: want NaN, got %v", row.BBWidthRank)
	}
	if snap.Ready(200) {
		t.Fatal("30 periods must not be Ready(200)")
	}
}

func TestVolumeSignal(t *testing.T) {
	n := 200
	volumes := constSlice(n, 100)
	volumes[197], volumes[198], volumes[199] = 300, 400, 500
	snap := Compute(proxySeries(constSlice(n, 100), volumes))

	row := snap.Last()
	if !row.VolRising {
		t.Fatal("three rising volumes must set VolRising")
	}
	wantRatio := (4*100.0 + 300 + 400 + 500) / 7 / ((27*100.0 + 300 + 400 + 500) / 30)
	if math.Abs(row.VolRatio-wantRatio) > 1e-9 {
		t.Fatalf("want ratio %v, got %v", wantRatio, row.VolRatio)
	}
	if !row.VolSignal {
		t.Fatalf("ratio %v > %v and rising: want VolSignal", row.VolRatio, VolRatioGate)
	}

	// rising alone is not enough: mild ramp keeps the ratio under the gate
	mild := constSlice(n, 100)
	mild[197], mild[198], mild[199] = 101, 102, 103
	row = Compute(proxySeries(constSlice(n, 100), mild)).Last()
	if !row.VolRising || row.VolSignal {
		t.Fatalf("mild ramp: want rising without signal, got rising=%v signal=%v", row.VolRising, row.VolSignal)
	}
}

func TestSqueezeRank(t *testing.T) {
	n := 200
	prices := make([]float64, n)
	for i := range prices {
		if i < 186 && i%2 == 0 {
			prices[i] = 110
		} else if i < 186 {
			prices[i] = 90
		} else {
			prices[i] = 100
		}
	}
	snap := Compute(proxySeries(prices, constSlice(n, 100)))
	rank := snap.Last().BBWidthRank
	if math.IsNaN(rank) || rank >= 0.10 {
		t.Fatalf("calming tail must rank at the bottom of its width history, got %v", rank)
	}
}

func TestATRFromCloseProxy(t *testing.T) {
	n := 200
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	snap := Compute(proxySeries(prices, constSlice(n, 100)))
	if got := snap.Last().ATR; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("unit steps: want ATR 1, got %v", got)
	}
}

func TestPriceVsRecentHigh(t *testing.T) {
	n := 100
	prices := constSlice(n, 100)
	prices[n-1] = 80
	snap := Compute(proxySeries(prices, constSlice(n, 100)))
	if got := snap.Last().PriceVsHigh; math.Abs(got-0.80) > 1e-9 {
		t.Fatalf("want 0.80 of the 30d high, got %v", got)
	}
}
