// Package indicators computes rolling technical features from a daily
// price/volume series. Compute is pure, deterministic and total: it never
// errors on short series, it yields NaN where a window lacks history.
package indicators

import (
	"math"

	"pigeon_bot/internal/models"
)

// Default windows. Tunable, but the shapes are contracts: see Snapshot.
const (
	BBPeriod       = 20
	BBStdK         = 2.0
	BBRankWindow   = 180
	ATRPeriod      = 14
	VolShortWindow = 7
	VolLongWindow  = 30
	VolRatioGate   = 1.5
	HighWindow     = 365
	HighMinPeriods = 180
	HighShortFloor = 50 // relaxed floor for short-history assets
	RecentHigh     = 30
	LiquidityMA    = 30
	LiquidityDiff  = 14
	SMAFastWindow  = 50
	SMASlowWindow  = 200
	RSIPeriod      = 14
	ReturnsVolW    = 24
	VolRankWindow  = 180
	RangeWindow    = 7
)

// Snapshot is a series enriched with derived columns. All slices share the
// series length; index i describes the state at candle i.
type Snapshot struct {
	Series models.Series

	BBMid       []float64
	BBUpper     []float64
	BBLower     []float64
	BBWidth     []float64 // (upper-lower)/mid
	BBWidthRank []float64 // percentile rank of width over BBRankWindow

	// TR is close-to-close absolute change: a deliberately degraded proxy
	// for true range when only close prices exist. It is NOT a substitute
	// for high/low ATR; strategies needing accuracy should prefer series
	// with real OHLC.
	TR     []float64
	ATR    []float64
	ATRPct []float64

	Vol7          []float64
	Vol30         []float64
	VolRatio      []float64 // MA(vol,7)/MA(vol,30)
	VolRising     []bool    // volume strictly rising 3 consecutive periods
	VolSignal     []bool    // ratio > gate AND rising
	VolSpikeRatio []float64 // raw volume vs MA30

	High365     []float64
	Drawdown    []float64 // (rolling_max - price)/rolling_max
	High30      []float64
	PriceVsHigh []float64 // price / rolling_max(price, 30)

	LiquidityProxy    []float64
	LiquidityMA30     []float64
	SpreadCompression []float64 // 14-period change of smoothed liquidity

	DailyRange      []float64 // (high-low)/price, zero in proxy mode
	Range7Max       []float64
	SpreadNarrowing []float64 // (7d-max range - range)/7d-max range

	SMAFast    []float64
	SMASlow    []float64
	RSI        []float64
	Volatility []float64 // rolling std of fractional returns
	VolRank    []float64 // percentile rank of Volatility over VolRankWindow
}

// Len returns the number of periods in the snapshot.
func (s *Snapshot) Len() int { return len(s.Series) }

// Ready reports whether the last row has at least min periods behind it.
func (s *Snapshot) Ready(min int) bool { return s.Len() >= min }

// Row is the last-period view strategies consume.
type Row struct {
	Price             float64
	BBMid             float64
	BBLower           float64
	BBWidth           float64
	BBWidthRank       float64
	ATR               float64
	ATRPct            float64
	VolRatio          float64
	VolRising         bool
	VolSignal         bool
	VolSpikeRatio     float64
	Drawdown          float64
	PriceVsHigh       float64
	SpreadCompression float64
	DailyRange        float64
	Range7Max         float64
	SpreadNarrowing   float64
	NarrativeSpike    bool
	SMAFast           float64
	SMASlow           float64
	RSI               float64
	Volatility        float64
	VolRank           float64
}

// Last returns the most recent row. Zero-length snapshots return a row of
// NaNs, which every strategy treats as HOLD.
func (s *Snapshot) Last() Row {
	i := s.Len() - 1
	if i < 0 {
		r := Row{}
		r.Price = math.NaN()
		r.Drawdown = math.NaN()
		r.BBWidthRank = math.NaN()
		r.ATR = math.NaN()
		r.RSI = math.NaN()
		return r
	}
	return Row{
		Price:             s.Series[i].Price,
		BBMid:             s.BBMid[i],
		BBLower:           s.BBLower[i],
		BBWidth:           s.BBWidth[i],
		BBWidthRank:       s.BBWidthRank[i],
		ATR:               s.ATR[i],
		ATRPct:            s.ATRPct[i],
		VolRatio:          s.VolRatio[i],
		VolRising:         s.VolRising[i],
		VolSignal:         s.VolSignal[i],
		VolSpikeRatio:     s.VolSpikeRatio[i],
		Drawdown:          s.Drawdown[i],
		PriceVsHigh:       s.PriceVsHigh[i],
		SpreadCompression: s.SpreadCompression[i],
		DailyRange:        s.DailyRange[i],
		Range7Max:         s.Range7Max[i],
		SpreadNarrowing:   s.SpreadNarrowing[i],
		NarrativeSpike:    s.VolSpikeRatio[i] > 2.0 && !math.IsNaN(s.VolSpikeRatio[i]),
		SMAFast:           s.SMAFast[i],
		SMASlow:           s.SMASlow[i],
		RSI:               s.RSI[i],
		Volatility:        s.Volatility[i],
		VolRank:           s.VolRank[i],
	}
}

// Compute enriches a series with every derived column. Proxy-mode series
// (High=Low=Close) produce zero DailyRange and close-to-close ATR.
func Compute(series models.Series) *Snapshot {
	n := len(series)
	prices := series.Prices()
	highs := series.Highs()
	volumes := series.Volumes()

	snap := &Snapshot{Series: series}

	// Bollinger bands and the squeeze rank
	snap.BBMid = RollingMean(prices, BBPeriod)
	std := RollingStd(prices, BBPeriod)
	snap.BBUpper = make([]float64, n)
	snap.BBLower = make([]float64, n)
	snap.BBWidth = make([]float64, n)
	for i := 0; i < n; i++ {
		mid, sd := snap.BBMid[i], std[i]
		if math.IsNaN(mid) || math.IsNaN(sd) || mid == 0 {
			snap.BBUpper[i], snap.BBLower[i], snap.BBWidth[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		snap.BBUpper[i] = mid + BBStdK*sd
		snap.BBLower[i] = mid - BBStdK*sd
		snap.BBWidth[i] = (snap.BBUpper[i] - snap.BBLower[i]) / mid
	}
	snap.BBWidthRank = RollingRankPct(snap.BBWidth, BBRankWindow)

	// ATR proxy from close-to-close moves
	diff := Diff(prices)
	snap.TR = make([]float64, n)
	for i, d := range diff {
		snap.TR[i] = math.Abs(d)
	}
	snap.ATR = RollingMean(snap.TR, ATRPeriod)
	snap.ATRPct = make([]float64, n)
	for i := 0; i < n; i++ {
		if prices[i] > 0 && !math.IsNaN(snap.ATR[i]) {
			snap.ATRPct[i] = snap.ATR[i] / prices[i]
		} else {
			snap.ATRPct[i] = math.NaN()
		}
	}

	// Volume trend: 7/30 ratio plus 3-day strictly rising confirmation
	snap.Vol7 = RollingMean(volumes, VolShortWindow)
	snap.Vol30 = RollingMean(volumes, VolLongWindow)
	snap.VolRatio = make([]float64, n)
	snap.VolSpikeRatio = make([]float64, n)
	for i := 0; i < n; i++ {
		v30 := snap.Vol30[i]
		if math.IsNaN(v30) || v30 == 0 {
			snap.VolRatio[i], snap.VolSpikeRatio[i] = math.NaN(), math.NaN()
			continue
		}
		if math.IsNaN(snap.Vol7[i]) {
			snap.VolRatio[i] = math.NaN()
		} else {
			snap.VolRatio[i] = snap.Vol7[i] / v30
		}
		snap.VolSpikeRatio[i] = volumes[i] / v30
	}
	snap.VolRising = make([]bool, n)
	snap.VolSignal = make([]bool, n)
	for i := 2; i < n; i++ {
		snap.VolRising[i] = volumes[i] > volumes[i-1] && volumes[i-1] > volumes[i-2]
		snap.VolSignal[i] = !math.IsNaN(snap.VolRatio[i]) && snap.VolRatio[i] > VolRatioGate && snap.VolRising[i]
	}

	// Drawdown from the long rolling high
	minPer := HighMinPeriods
	if n < HighMinPeriods {
		minPer = HighShortFloor
	}
	snap.High365 = RollingMax(highs, HighWindow, minPer)
	snap.Drawdown = make([]float64, n)
	for i := 0; i < n; i++ {
		h := snap.High365[i]
		if math.IsNaN(h) || h == 0 {
			snap.Drawdown[i] = math.NaN()
			continue
		}
		snap.Drawdown[i] = (h - prices[i]) / h
	}

	// Anti-FOMO: price vs recent high
	snap.High30 = RollingMax(prices, RecentHigh, RecentHigh)
	snap.PriceVsHigh = make([]float64, n)
	for i := 0; i < n; i++ {
		h := snap.High30[i]
		if math.IsNaN(h) || h == 0 {
			snap.PriceVsHigh[i] = math.NaN()
			continue
		}
		snap.PriceVsHigh[i] = prices[i] / h
	}

	// Liquidity proxy: volume per unit of daily move. Thicker books move
	// less per dollar traded. Positive 14-period change = tightening.
	ret := PctChange(prices, 1)
	snap.LiquidityProxy = make([]float64, n)
	for i := 0; i < n; i++ {
		move := math.Abs(ret[i])
		if math.IsNaN(move) || prices[i] <= 0 {
			snap.LiquidityProxy[i] = math.NaN()
			continue
		}
		if move == 0 {
			move = 0.0001
		}
		snap.LiquidityProxy[i] = volumes[i] / (prices[i] * move)
	}
	snap.LiquidityMA30 = RollingMean(snap.LiquidityProxy, LiquidityMA)
	snap.SpreadCompression = PctChange(snap.LiquidityMA30, LiquidityDiff)

	// Intraday range compression (zero in proxy mode)
	snap.DailyRange = make([]float64, n)
	for i, c := range series {
		if c.Price <= 0 {
			snap.DailyRange[i] = math.NaN()
			continue
		}
		snap.DailyRange[i] = (c.High - c.Low) / c.Price
	}
	snap.Range7Max = RollingMax(snap.DailyRange, RangeWindow, RangeWindow)
	snap.SpreadNarrowing = make([]float64, n)
	for i := 0; i < n; i++ {
		m := snap.Range7Max[i]
		if math.IsNaN(m) || m == 0 {
			snap.SpreadNarrowing[i] = math.NaN()
			continue
		}
		snap.SpreadNarrowing[i] = (m - snap.DailyRange[i]) / m
	}

	// Trend / oscillator columns
	snap.SMAFast = RollingMean(prices, SMAFastWindow)
	snap.SMASlow = RollingMean(prices, SMASlowWindow)
	snap.RSI = RSI(prices, RSIPeriod)
	snap.Volatility = RollingStd(ret, ReturnsVolW)
	snap.VolRank = RollingRankPct(snap.Volatility, VolRankWindow)

	return snap
}
