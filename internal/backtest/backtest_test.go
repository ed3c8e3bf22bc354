package backtest

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pigeon_bot/internal/models"
	strategyservice "pigeon_bot/internal/modules/strategy/service"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, "coin.csv", `date,open,high,low,close,volume
2025-01-01,100,105,95,102,5000
2025-01-02,102,110,101,108,6000
2025-01-03,108,109,99,100,7000
`)
	series, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 3 {
		t.Fatalf("want 3 candles, got %d", len(series))
	}
	c := series[1]
	if c.Price != 108 || c.High != 110 || c.Low != 101 || c.Volume != 6000 {
		t.Fatalf("row decoded wrong: %+v", c)
	}
	if !c.Ts.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date decoded wrong: %v", c.Ts)
	}
}

func TestLoadCSVPriceOnlyAndUnixDates(t *testing.T) {
	path := writeCSV(t, "coin.csv", `ts,price
1735689600,100
1735776000,105
`)
	series, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 || !series[0].IsProxy() {
		t.Fatalf("price-only rows must become proxy candles: %+v", series)
	}
}

func TestLoadCSVRejectsBadInput(t *testing.T) {
	for name, content := range map[string]string{
		"no rows":        "date,close\n",
		"no date column": "foo,close\n1,2\n",
		"out of order":   "date,close\n2025-01-02,100\n2025-01-01,101\n",
		"bad price":      "date,close\n2025-01-01,abc\n",
	} {
		path := writeCSV(t, "bad.csv", content)
		if _, err := LoadCSV(path); err == nil {
			t.Errorf("%s: want error", name)
		}
	}
}

// scriptedStrategy replays a fixed day-indexed script, HOLD otherwise.
type scriptedStrategy struct {
	script map[int]models.Signal
	day    int
}

func (s *scriptedStrategy) Name() string    { return "scripted" }
func (s *scriptedStrategy) MinPeriods() int { return 0 }

func (s *scriptedStrategy) Evaluate(in strategyservice.Input) models.SignalReport {
	sig, ok := s.script[s.day]
	s.day++
	if !ok {
		sig = models.SignalHold
	}
	return models.SignalReport{Instrument: in.Meta.Instrument, Signal: sig, Reason: "scripted"}
}

func flatSeries(n int, price float64) models.Series {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.Series, n)
	for i := range s {
		s[i] = models.Candle{Ts: base.AddDate(0, 0, i), Price: price, Open: price, High: price, Low: price, Volume: 1000}
	}
	return s
}

func testConfig() Config {
	return Config{
		Pool:            models.PoolEcho,
		StartingCapital: 1000,
		FeeRate:         0,
		DustFloor:       1,
		RiskFraction:    0.05,
		MaxPositions:    8,
	}
}

func TestRunHoldOnlyKeepsCapital(t *testing.T) {
	res, err := Run(context.Background(), flatSeries(30, 100), &scriptedStrategy{}, models.Candidate{Instrument: "coin"}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Trades != 0 {
		t.Fatalf("hold-only replay must not trade, got %d", res.Trades)
	}
	if math.Abs(res.FinalEquity-1000) > 1e-9 || res.ROI != 0 {
		t.Fatalf("flat replay must end at starting capital, got %+v", res)
	}
	if res.MaxDrawdown != 0 {
		t.Fatalf("flat curve has no drawdown, got %v", res.MaxDrawdown)
	}
	if len(res.Curve) != 30 {
		t.Fatalf("curve must have one point per day, got %d", len(res.Curve))
	}
}

func TestRunBuySellCycle(t *testing.T) {
	series := flatSeries(10, 100)
	// double the price from day 5 on
	for i := 5; i < 10; i++ {
		series[i].Price = 200
		series[i].Open, series[i].High, series[i].Low = 200, 200, 200
	}
	strat := &scriptedStrategy{script: map[int]models.Signal{
		2: models.SignalBuy,
		7: models.SignalSell,
	}}

	res, err := Run(context.Background(), series, strat, models.Candidate{Instrument: "coin"}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Trades != 1 || res.Wins != 1 {
		t.Fatalf("want one winning round trip, got %+v", res)
	}
	// bet 50 at 100, sold at 200: +50 with zero fees
	if math.Abs(res.FinalEquity-1050) > 1e-9 {
		t.Fatalf("want final equity 1050, got %v", res.FinalEquity)
	}
	if math.Abs(res.ROI-0.05) > 1e-9 {
		t.Fatalf("want ROI 0.05, got %v", res.ROI)
	}
}

func TestRunToleratesRejections(t *testing.T) {
	// sell with no position, buy twice: both rejections must not abort
	strat := &scriptedStrategy{script: map[int]models.Signal{
		0: models.SignalSell,
		1: models.SignalBuy,
		2: models.SignalBuy,
	}}
	res, err := Run(context.Background(), flatSeries(5, 100), strat, models.Candidate{Instrument: "coin"}, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if res.Trades != 0 {
		t.Fatalf("rejected signals are not trades, got %d", res.Trades)
	}
}
