package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
)

type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// DailySeries returns up to days daily close-only candles for one
// instrument, newest last. The API reports close prices only, so the
// result is a proxy series (High=Low=Open=Price). Cached per instrument
// for the client TTL.
func (c *Client) DailySeries(ctx context.Context, instrument string, days int) (models.Series, error) {
	key := fmt.Sprintf("%s:%d", instrument, days)

	c.mu.Lock()
	if e, ok := c.cache[key]; ok && time.Since(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.series, nil
	}
	c.mu.Unlock()

	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily",
		c.base, url.PathEscape(instrument), days)

	var chart marketChart
	if err := c.getJSON(ctx, u, &chart); err != nil {
		return nil, errors.Wrapf(err, "market_chart %s", instrument)
	}
	if len(chart.Prices) == 0 {
		return nil, errors.Errorf("market_chart %s: empty prices", instrument)
	}

	series := chartToSeries(chart)
	if err := series.Validate(); err != nil {
		return nil, errors.Wrapf(err, "market_chart %s", instrument)
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{series: series, fetched: time.Now()}
	c.mu.Unlock()
	return series, nil
}

// chartToSeries converts [ms, value] pairs into a proxy series, keeping
// the last point per UTC day. The API appends a partial point for the
// current day whose timestamp is not midnight; dedup makes the series
// strictly one candle per day.
func chartToSeries(chart marketChart) models.Series {
	vols := make(map[int64]float64, len(chart.TotalVolumes))
	for _, p := range chart.TotalVolumes {
		vols[dayKey(p[0])] = p[1]
	}

	type point struct {
		ts    time.Time
		price float64
	}
	byDay := make(map[int64]point, len(chart.Prices))
	order := make([]int64, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		k := dayKey(p[0])
		if _, seen := byDay[k]; !seen {
			order = append(order, k)
		}
		byDay[k] = point{ts: time.Unix(k, 0).UTC(), price: p[1]}
	}

	series := make(models.Series, 0, len(order))
	for _, k := range order {
		pt := byDay[k]
		series = append(series, models.Candle{
			Ts:     pt.ts,
			Price:  pt.price,
			Open:   pt.price,
			High:   pt.price,
			Low:    pt.price,
			Volume: vols[k],
		})
	}
	return series
}

func dayKey(ms float64) int64 {
	return time.UnixMilli(int64(ms)).UTC().Truncate(24 * time.Hour).Unix()
}

// SimplePrices returns the current USD price per instrument id. Not
// cached: it is the freshest view the trailing ratchet works from.
func (c *Client) SimplePrices(ctx context.Context, instruments []string) (map[string]float64, error) {
	if len(instruments) == 0 {
		return map[string]float64{}, nil
	}
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.base, url.QueryEscape(strings.Join(instruments, ",")))

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return nil, errors.Wrap(err, "simple/price")
	}

	out := make(map[string]float64, len(payload))
	for id, p := range payload {
		if p.USD > 0 {
			out[id] = p.USD
		}
	}
	return out, nil
}
