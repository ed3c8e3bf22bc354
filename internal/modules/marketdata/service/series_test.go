package service

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(base string) *Client {
	return NewClient(base, time.Second, 3, time.Millisecond, time.Hour)
}

func dayMs(day int) float64 {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return float64(base.AddDate(0, 0, day).UnixMilli())
}

func TestChartToSeriesDedupesPartialDay(t *testing.T) {
	chart := marketChart{
		Prices: [][2]float64{
			{dayMs(0), 100},
			{dayMs(1), 110},
			// partial point later the same day: keep the later value
			{dayMs(1) + 6*3600*1000, 112},
			{dayMs(2), 120},
		},
		TotalVolumes: [][2]float64{
			{dayMs(0), 1000},
			{dayMs(1), 2000},
			{dayMs(2), 3000},
		},
	}

	series := chartToSeries(chart)
	if len(series) != 3 {
		t.Fatalf("want 3 daily candles, got %d", len(series))
	}
	if series[1].Price != 112 {
		t.Fatalf("partial-day point must win, got %v", series[1].Price)
	}
	if series[1].Volume != 2000 {
		t.Fatalf("volume must attach by day, got %v", series[1].Volume)
	}
	if !series[0].IsProxy() {
		t.Fatal("chart candles are close-only proxies")
	}
	if err := series.Validate(); err != nil {
		t.Fatalf("deduped series must validate: %v", err)
	}
}

func TestDailySeriesRetriesAndCaches(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/coins/bitcoin/market_chart") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// two transient failures, then success
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"prices":[[1735689600000,100],[1735776000000,105]],"total_volumes":[[1735689600000,500],[1735776000000,600]]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	series, err := c.DailySeries(context.Background(), "bitcoin", 365)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 || series.Last().Price != 105 {
		t.Fatalf("unexpected series %+v", series)
	}
	if hits.Load() != 3 {
		t.Fatalf("want 3 attempts, got %d", hits.Load())
	}

	// second call within TTL must not touch the server
	if _, err := c.DailySeries(context.Background(), "bitcoin", 365); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 3 {
		t.Fatalf("cached fetch must skip the network, got %d hits", hits.Load())
	}
}

func TestDailySeriesGivesUpOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"coin not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.DailySeries(context.Background(), "no-such-coin", 365); err == nil {
		t.Fatal("404 must fail without retries")
	}
}

func TestSimplePricesDropsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":65000.5},"dead-coin":{"usd":0}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	prices, err := c.SimplePrices(context.Background(), []string{"bitcoin", "dead-coin"})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(prices["bitcoin"]-65000.5) > 1e-9 {
		t.Fatalf("want bitcoin 65000.5, got %v", prices["bitcoin"])
	}
	if _, ok := prices["dead-coin"]; ok {
		t.Fatal("zero price must be dropped")
	}
}

func TestMarketsDecodesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"cardano","symbol":"ada","name":"Cardano","current_price":0.45,"market_cap":16000000000,"total_volume":400000000,"ath":3.09,"ath_change_percentage":-85.4,"price_change_percentage_30d_in_currency":-12.5}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	listings, err := c.Markets(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 {
		t.Fatalf("want 1 listing, got %d", len(listings))
	}
	l := listings[0]
	if l.ID != "cardano" || l.ATHChangePct != -85.4 || l.Change30d != -12.5 {
		t.Fatalf("listing decoded wrong: %+v", l)
	}

	if _, err := c.Markets(context.Background(), 0); err == nil {
		t.Fatal("topN 0 must be rejected")
	}
}

func TestCoinMetaDerivesAge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cardano","genesis_date":"2017-10-01","developer_score":70.1,"community_score":55.2}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	meta, err := c.CoinMeta(context.Background(), "cardano")
	if err != nil {
		t.Fatal(err)
	}
	if meta.DevScore != 70.1 || meta.CommunityScore != 55.2 {
		t.Fatalf("scores decoded wrong: %+v", meta)
	}
	if meta.AgeYears < 5 {
		t.Fatalf("2017 genesis must read as several years old, got %v", meta.AgeYears)
	}
}
