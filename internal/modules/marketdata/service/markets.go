package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Listing is one row of the top-N market listing the screener filters.
type Listing struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	TotalVolume  float64 `json:"total_volume"`
	ATH          float64 `json:"ath"`
	ATHChangePct float64 `json:"ath_change_percentage"`
	Change30d    float64 `json:"price_change_percentage_30d_in_currency"`
}

// Markets lists the top topN instruments by market cap with 30d change
// attached. Single page; the API caps per_page at 250.
func (c *Client) Markets(ctx context.Context, topN int) ([]Listing, error) {
	if topN <= 0 || topN > 250 {
		return nil, errors.Errorf("topN %d out of [1,250]", topN)
	}
	u := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=1&price_change_percentage=30d",
		c.base, topN)

	var listings []Listing
	if err := c.getJSON(ctx, u, &listings); err != nil {
		return nil, errors.Wrap(err, "coins/markets")
	}
	return listings, nil
}

// CoinMeta carries the per-coin quality metadata the narrative pool gates
// on.
type CoinMeta struct {
	ID             string
	DevScore       float64
	CommunityScore float64
	AgeYears       float64
}

type coinPayload struct {
	ID             string  `json:"id"`
	GenesisDate    string  `json:"genesis_date"`
	DevScore       float64 `json:"developer_score"`
	CommunityScore float64 `json:"community_score"`
	DeveloperData  struct {
		Stars       float64 `json:"stars"`
		Subscribers float64 `json:"subscribers"`
	} `json:"developer_data"`
}

// CoinMeta fetches developer/community scores and derives coin age from
// the genesis date. A missing genesis date yields age 0, which downstream
// filters treat as too young.
func (c *Client) CoinMeta(ctx context.Context, instrument string) (CoinMeta, error) {
	u := fmt.Sprintf("%s/coins/%s?localization=false&tickers=false&market_data=false&sparkline=false",
		c.base, url.PathEscape(instrument))

	var payload coinPayload
	if err := c.getJSON(ctx, u, &payload); err != nil {
		return CoinMeta{}, errors.Wrapf(err, "coins/%s", instrument)
	}

	meta := CoinMeta{
		ID:             payload.ID,
		DevScore:       payload.DevScore,
		CommunityScore: payload.CommunityScore,
	}
	if payload.GenesisDate != "" {
		if born, err := time.Parse("2006-01-02", payload.GenesisDate); err == nil {
			meta.AgeYears = time.Since(born).Hours() / (24 * 365.25)
		}
	}
	return meta, nil
}
