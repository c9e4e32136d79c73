package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Currency identifies one of the two stake currencies a market accepts.
type Currency string

const (
	CurrencyTON  Currency = "TON"
	CurrencyUSDT Currency = "USDT"
)

// Currencies returns the supported currencies in canonical order. TON is the
// primary currency and is the one surfaced by the single-pool market view.
func Currencies() [2]Currency {
	return [2]Currency{CurrencyTON, CurrencyUSDT}
}

// ValidCurrency reports whether c is one of the supported currencies.
func ValidCurrency(c Currency) bool {
	return c == CurrencyTON || c == CurrencyUSDT
}

// Side is the proposition side a prediction backs.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// ValidSide reports whether s is a recognised side.
func ValidSide(s Side) bool {
	return s == SideYes || s == SideNo
}

// Outcome is the resolution code stored with a market. The integer values
// match the on-chain getter: 0 unresolved, 1 yes, 2 no.
type Outcome uint8

const (
	OutcomeUnresolved Outcome = 0
	OutcomeYes        Outcome = 1
	OutcomeNo         Outcome = 2
)

// WinningSide maps a terminal outcome to the side that gets paid.
func (o Outcome) WinningSide() Side {
	if o == OutcomeNo {
		return SideNo
	}
	return SideYes
}

// MarketState is the lifecycle state of a market. Open and Closed are derived
// from the close timestamp; only Resolved is stored.
type MarketState string

const (
	MarketStateOpen     MarketState = "open"
	MarketStateClosed   MarketState = "closed"
	MarketStateResolved MarketState = "resolved"
)

// Pool holds the aggregate yes/no stakes for one currency. Amounts are in
// minor units and never negative.
type Pool struct {
	Yes *big.Int `json:"yes"`
	No  *big.Int `json:"no"`
}

// NewPool returns a zero-initialized pool.
func NewPool() Pool {
	return Pool{Yes: new(big.Int), No: new(big.Int)}
}

// Total returns yes+no as a fresh big.Int.
func (p Pool) Total() *big.Int {
	return new(big.Int).Add(p.Yes, p.No)
}

// SideAmount returns the pool balance for the given side.
func (p Pool) SideAmount(side Side) *big.Int {
	if side == SideNo {
		return p.No
	}
	return p.Yes
}

// Clone returns a deep copy of the pool.
func (p Pool) Clone() Pool {
	return Pool{Yes: new(big.Int).Set(p.Yes), No: new(big.Int).Set(p.No)}
}

// Market is a single yes/no proposition with one betting pool per currency.
// Markets are never deleted; resolved markets persist for historical queries.
type Market struct {
	ID        uint64                `json:"id"`
	Question  string                `json:"question"`
	StartTime int64                 `json:"start_time"`
	CloseTime int64                 `json:"close_time"`
	Pools     map[Currency]Pool     `json:"pools"`
	Outcome   Outcome               `json:"outcome"`
	Resolved  bool                  `json:"resolved"`
	CreatedBy common.Address        `json:"created_by"`
	CreatedAt time.Time             `json:"created_at"`
}

// StateAt derives the lifecycle state at the given unix timestamp.
func (m Market) StateAt(now int64) MarketState {
	switch {
	case m.Resolved:
		return MarketStateResolved
	case now >= m.CloseTime:
		return MarketStateClosed
	default:
		return MarketStateOpen
	}
}

// Clone returns a deep copy, cloning every pool's big.Int balances so callers
// can hold the copy outside the ledger lock.
func (m Market) Clone() Market {
	out := m
	out.Pools = make(map[Currency]Pool, len(m.Pools))
	for c, p := range m.Pools {
		out.Pools[c] = p.Clone()
	}
	return out
}

// MarketView is the single-market read shape exposed by the query surface.
// It mirrors the original get_market getter: one yes/no pool pair (primary
// currency) and the 0/1/2 outcome code.
type MarketView struct {
	Question  string   `json:"question"`
	StartTime int64    `json:"startTime"`
	CloseTime int64    `json:"closeTime"`
	YesPool   *big.Int `json:"yesPool"`
	NoPool    *big.Int `json:"noPool"`
	Outcome   int      `json:"outcome"`
}

// View projects the market into its query shape.
func (m Market) View() MarketView {
	primary := m.Pools[CurrencyTON]
	if primary.Yes == nil {
		primary = NewPool()
	}
	return MarketView{
		Question:  m.Question,
		StartTime: m.StartTime,
		CloseTime: m.CloseTime,
		YesPool:   new(big.Int).Set(primary.Yes),
		NoPool:    new(big.Int).Set(primary.No),
		Outcome:   int(m.Outcome),
	}
}
