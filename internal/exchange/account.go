package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Client reads the spot account balance used by the live-mode startup
// reconciliation. Only signed read endpoints; order placement stays out
// of scope until live execution is trusted.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	quoteAsset string
	httpClient *http.Client
}

func NewClient(key, secret string) *Client {
	return &Client{
		baseURL:    "https://api.mexc.com",
		apiKey:     key,
		apiSecret:  secret,
		quoteAsset: "USDT",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) sign(query string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// QuoteBalance returns free+locked quote-asset balance of the spot
// account.
func (c *Client) QuoteBalance(ctx context.Context) (float64, error) {
	if c.apiKey == "" || c.apiSecret == "" {
		return 0, errors.New("api creds empty")
	}

	query := fmt.Sprintf("timestamp=%d", time.Now().UTC().UnixMilli())
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/account?"+query, nil)
	if err != nil {
		return 0, errors.Wrap(err, "build request")
	}
	req.Header.Set("X-MEXC-APIKEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "read body")
	}
	if resp.StatusCode/100 != 2 {
		return 0, errors.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return 0, errors.Wrap(err, "decode account")
	}

	for _, b := range payload.Balances {
		if b.Asset != c.quoteAsset {
			continue
		}
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		return free + locked, nil
	}
	return 0, nil
}
