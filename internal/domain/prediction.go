package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Prediction is an individual bettor's stake record. Records are immutable
// once placed; repeated bets by the same bettor on the same side accumulate
// as separate records, never merged.
type Prediction struct {
	ID       string         `json:"id"`
	MarketID uint64         `json:"market_id"`
	Bettor   common.Address `json:"bettor"`
	Side     Side           `json:"side"`
	Currency Currency       `json:"currency"`
	Amount   *big.Int       `json:"amount"`
	PlacedAt time.Time      `json:"placed_at"`
}

// Clone returns a deep copy of the prediction.
func (p Prediction) Clone() Prediction {
	out := p
	out.Amount = new(big.Int).Set(p.Amount)
	return out
}

// Payout is the amount owed to one winning prediction after resolution.
// Amounts are rounded down; the remainder accrues to the protocol.
type Payout struct {
	PredictionID string         `json:"prediction_id"`
	MarketID     uint64         `json:"market_id"`
	Bettor       common.Address `json:"bettor"`
	Currency     Currency       `json:"currency"`
	Amount       *big.Int       `json:"amount"`
}

// Settlement is the full accounting result of resolving one market, computed
// atomically at resolve time. Fee and Swept are keyed by currency; Swept
// carries any distributable amount that had no winning stake to claim it.
type Settlement struct {
	MarketID   uint64                `json:"market_id"`
	Outcome    Outcome               `json:"outcome"`
	ResolvedBy common.Address        `json:"resolved_by"`
	ResolvedAt time.Time             `json:"resolved_at"`
	Fee        map[Currency]*big.Int `json:"fee"`
	Swept      map[Currency]*big.Int `json:"swept"`
	Payouts    []Payout              `json:"payouts"`
}

// FeeTotal returns the fee plus sweep credited for the given currency.
func (s Settlement) FeeTotal(c Currency) *big.Int {
	total := new(big.Int)
	if f, ok := s.Fee[c]; ok {
		total.Add(total, f)
	}
	if sw, ok := s.Swept[c]; ok {
		total.Add(total, sw)
	}
	return total
}
