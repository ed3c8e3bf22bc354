package service

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// Client talks to a CoinGecko-compatible market data API. All fetches go
// through a bounded retry loop; daily series are cached for the configured
// TTL so repeated pool passes within one hour hit the network once.
type Client struct {
	base       string
	httpClient *http.Client
	retryMax   int
	backoff    time.Duration

	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	series  models.Series
	fetched time.Time
}

func NewClient(base string, timeout time.Duration, retryMax int, backoff, ttl time.Duration) *Client {
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
		retryMax:   retryMax,
		backoff:    backoff,
		ttl:        ttl,
		cache:      make(map[string]cacheEntry),
	}
}

// getJSON fetches rawURL and decodes the body into out. Network errors,
// 429 and 5xx are retried with doubling backoff up to retryMax times;
// other HTTP errors fail immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var lastErr error
	wait := c.backoff
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			logger.Warn("marketdata: retry %d/%d %s: %v", attempt, c.retryMax, rawURL, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		body, retryable, err := c.getOnce(ctx, rawURL)
		if err == nil {
			if err := sonic.Unmarshal(body, out); err != nil {
				return errors.Wrapf(err, "decode %s", rawURL)
			}
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "giving up after %d retries", c.retryMax)
}

func (c *Client) getOnce(ctx context.Context, rawURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5
		return nil, retryable, errors.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errors.Wrap(err, "read body")
	}
	return body, false, nil
}
