package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"pigeon_bot/internal/models"
	"pigeon_bot/pkg/logger"
)

// PeakRatchet is the slice of the ledger the streamer drives.
type PeakRatchet interface {
	RatchetPeak(ctx context.Context, kind models.PoolKind, inst string, price float64) error
}

// ConnState receives stream connectivity flips for health reporting.
type ConnState interface {
	SetStreamConnected(bool)
}

// Subscription binds one exchange ticker symbol to one open position.
type Subscription struct {
	Pool       models.PoolKind
	Instrument string
	Symbol     string // base asset symbol, e.g. "btc"
}

// Streamer keeps trailing high-water marks fresh between daily ticks:
// one websocket with a miniTicker subscription per open position, and
// every new high is ratcheted into the persisted state. Losing the
// stream costs trailing accuracy, never correctness, so failures only
// reconnect.
type Streamer struct {
	url    string
	dialer *websocket.Dialer
	ledger PeakRatchet
	health ConnState // optional

	mu   sync.Mutex
	subs []Subscription
	conn *websocket.Conn

	// lastSent throttles ledger writes to advances of at least 0.5%.
	lastSent map[string]float64
}

func NewStreamer(url string, ledger PeakRatchet, health ConnState) *Streamer {
	return &Streamer{
		url:      url,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ledger:   ledger,
		health:   health,
		lastSent: make(map[string]float64),
	}
}

func (s *Streamer) setConnected(v bool) {
	if s.health != nil {
		s.health.SetStreamConnected(v)
	}
}

// SetSubscriptions swaps the tracked position set. An active connection
// is closed so the read loop reconnects with the new set.
func (s *Streamer) SetSubscriptions(subs []Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = subs
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Run is the reconnect loop. It returns only when ctx is done.
func (s *Streamer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		subs := s.snapshot()
		if len(subs) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
			}
			continue
		}
		if err := s.streamOnce(ctx, subs); err != nil && ctx.Err() == nil {
			logger.Warn("pricestream: %v, reconnecting", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *Streamer) snapshot() []Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *Streamer) streamOnce(ctx context.Context, subs []Subscription) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	params := make([]string, 0, len(subs))
	bySymbol := make(map[string][]Subscription, len(subs))
	for _, sub := range subs {
		pair := strings.ToUpper(sub.Symbol) + "USDT"
		bySymbol[pair] = append(bySymbol[pair], sub)
		params = append(params, strings.ToLower(pair)+"@miniTicker")
	}
	subMsg := map[string]any{"method": "SUBSCRIBE", "params": params, "id": 1}
	if err := conn.WriteJSON(subMsg); err != nil {
		return err
	}
	logger.Info("pricestream: subscribed to %d tickers", len(params))
	s.setConnected(true)
	defer s.setConnected(false)

	// keepalive pong for the server's ping frames
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame struct {
			Event  string `json:"e"`
			Symbol string `json:"s"`
			Close  string `json:"c"`
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Event != "24hrMiniTicker" {
			continue
		}
		price := parsePrice(frame.Close)
		if price <= 0 {
			continue
		}
		s.onTick(ctx, bySymbol[frame.Symbol], frame.Symbol, price)
	}
}

func (s *Streamer) onTick(ctx context.Context, subs []Subscription, pair string, price float64) {
	s.mu.Lock()
	last := s.lastSent[pair]
	advance := last == 0 || price > last*1.005
	if advance {
		s.lastSent[pair] = price
	}
	s.mu.Unlock()
	if !advance {
		return
	}

	for _, sub := range subs {
		if err := s.ledger.RatchetPeak(ctx, sub.Pool, sub.Instrument, price); err != nil {
			logger.Warn("pricestream: ratchet %s/%s: %v", sub.Pool, sub.Instrument, err)
		}
	}
}
