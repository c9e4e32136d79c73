package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pub/sub channels carrying engine events.
const (
	ChannelMarkets     = "ch:market"
	ChannelBets        = "ch:bet"
	ChannelResolutions = "ch:resolve"
	ChannelFees        = "ch:fees"
	ChannelAdmins      = "ch:admin"
)

// StreamEvents is the durable stream mirroring every published event.
const StreamEvents = "events"

// Event is the JSON envelope published on the signal bus.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// MarketCreatedEvent is published after a market is created.
type MarketCreatedEvent struct {
	MarketID  uint64         `json:"market_id"`
	Question  string         `json:"question"`
	StartTime int64          `json:"start_time"`
	CloseTime int64          `json:"close_time"`
	CreatedBy common.Address `json:"created_by"`
}

// BetPlacedEvent is published after a prediction is recorded.
type BetPlacedEvent struct {
	PredictionID string         `json:"prediction_id"`
	MarketID     uint64         `json:"market_id"`
	Bettor       common.Address `json:"bettor"`
	Side         Side           `json:"side"`
	Currency     Currency       `json:"currency"`
	Amount       *big.Int       `json:"amount"`
}

// MarketResolvedEvent is published after a market settles.
type MarketResolvedEvent struct {
	MarketID   uint64         `json:"market_id"`
	Outcome    Outcome        `json:"outcome"`
	ResolvedBy common.Address `json:"resolved_by"`
	Payouts    int            `json:"payouts"`
}

// FeesWithdrawnEvent is published after an admin fee withdrawal.
type FeesWithdrawnEvent struct {
	Caller   common.Address `json:"caller"`
	Currency Currency       `json:"currency"`
	Amount   *big.Int       `json:"amount"`
}
