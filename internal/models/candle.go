package models

import (
	"fmt"
	"time"
)

// Candle is one daily observation. In proxy mode (CoinGecko market_chart
// gives close only) High=Low=Open=Price; volatility derived from such a
// series measures day-to-day change, not intraday range.
type Candle struct {
	Ts     time.Time `json:"ts"`
	Price  float64   `json:"price"` // close
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Volume float64   `json:"volume"`
}

// IsProxy reports whether the candle carries only a close price.
func (c Candle) IsProxy() bool {
	return c.High == c.Price && c.Low == c.Price && c.Open == c.Price
}

// Series is a price history ordered by time.
type Series []Candle

// NewProxySeries builds a close-only series with High=Low=Open=Price.
func NewProxySeries(ts []time.Time, prices, volumes []float64) Series {
	n := len(prices)
	s := make(Series, 0, n)
	for i := 0; i < n; i++ {
		var v float64
		if i < len(volumes) {
			v = volumes[i]
		}
		s = append(s, Candle{
			Ts:     ts[i],
			Price:  prices[i],
			Open:   prices[i],
			High:   prices[i],
			Low:    prices[i],
			Volume: v,
		})
	}
	return s
}

// Validate enforces the series invariants: strictly increasing timestamps,
// no duplicates, positive prices.
func (s Series) Validate() error {
	for i, c := range s {
		if c.Price <= 0 {
			return fmt.Errorf("candle %d: price %.8f <= 0", i, c.Price)
		}
		if i > 0 && !s[i-1].Ts.Before(c.Ts) {
			return fmt.Errorf("candle %d: timestamp %s not after %s", i, c.Ts, s[i-1].Ts)
		}
	}
	return nil
}

func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Price
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle, zero value for an empty series.
func (s Series) Last() Candle {
	if len(s) == 0 {
		return Candle{}
	}
	return s[len(s)-1]
}
