package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// HoneypotGate asks an external honeypot service whether a sell of the
// instrument would clear. Any transport or decode failure reads as safe:
// the gate removes confirmed traps, it must not starve the universe on
// API hiccups.
type HoneypotGate struct {
	base       string
	httpClient *http.Client
}

func NewHoneypotGate(base string, timeout time.Duration) *HoneypotGate {
	return &HoneypotGate{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *HoneypotGate) IsSafe(ctx context.Context, c models.Candidate) bool {
	if g.base == "" {
		return true
	}

	u := g.base + "?symbol=" + url.QueryEscape(c.Symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return true
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		logger.Warn("safety: check for %s failed open: %v", c.Symbol, err)
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return true
	}

	var payload struct {
		Honeypot struct {
			IsHoneypot bool `json:"isHoneypot"`
		} `json:"honeypotResult"`
	}
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return true
	}
	return !payload.Honeypot.IsHoneypot
}
