package models

import "time"

// FeeMode selects which side of the fee schedule a position was opened under.
type FeeMode string

const (
	FeeModeTaker FeeMode = "taker"
	FeeModeMaker FeeMode = "maker"
)

// Position is one open holding, owned by exactly one pool. At most one
// position per (pool, instrument). Amount > 0 while open.
type Position struct {
	Instrument    string    `json:"instrument"`
	Symbol        string    `json:"symbol,omitempty"`
	EntryPrice    float64   `json:"entry_price"`
	Amount        float64   `json:"amount"`
	HighestPrice  float64   `json:"highest_price"`
	OpenedAt      time.Time `json:"opened_at"`
	RegimeAtEntry string    `json:"regime_at_entry,omitempty"`
	FeeMode       FeeMode   `json:"fee_mode,omitempty"`
}

// Ratchet raises the trailing high-water mark. Returns true when the peak
// actually moved; it never decreases.
func (p *Position) Ratchet(price float64) bool {
	if p.HighestPrice == 0 {
		p.HighestPrice = p.EntryPrice
	}
	if price > p.HighestPrice {
		p.HighestPrice = price
		return true
	}
	return false
}

// DaysHeld is the whole number of days the position has been open at now.
func (p *Position) DaysHeld(now time.Time) int {
	if p.OpenedAt.IsZero() {
		return 0
	}
	return int(now.Sub(p.OpenedAt).Hours() / 24)
}

// PoolKind names the two capital pools.
type PoolKind string

const (
	PoolEcho PoolKind = "echo" // conservative rebound pool
	PoolNia  PoolKind = "nia"  // speculative ignition pool
)

// Pool is an independently capitalized sub-portfolio. Cash never goes
// negative; positions are keyed by instrument id.
type Pool struct {
	Cash      float64              `json:"cash"`
	Positions map[string]*Position `json:"positions"`
}

func NewPool(cash float64) *Pool {
	return &Pool{
		Cash:      cash,
		Positions: make(map[string]*Position),
	}
}

// Equity values the pool at the given price map. Instruments without a
// quote are valued at their trailing peak's entry cost basis.
func (p *Pool) Equity(prices map[string]float64) float64 {
	total := p.Cash
	for id, pos := range p.Positions {
		px, ok := prices[id]
		if !ok || px <= 0 {
			px = pos.EntryPrice
		}
		total += pos.Amount * px
	}
	return total
}
