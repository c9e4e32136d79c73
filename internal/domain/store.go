package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market records. The in-memory ledger is authoritative;
// the store is a write-through mirror used for durability and rehydration.
type MarketStore interface {
	Insert(ctx context.Context, m Market) error
	UpdatePools(ctx context.Context, id uint64, pools map[Currency]Pool) error
	MarkResolved(ctx context.Context, id uint64, outcome Outcome, resolvedAt time.Time) error
	GetByID(ctx context.Context, id uint64) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	LoadAll(ctx context.Context) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PredictionStore persists the append-only stake ledger.
type PredictionStore interface {
	Insert(ctx context.Context, p Prediction) error
	ListByMarket(ctx context.Context, marketID uint64) ([]Prediction, error)
	LoadAll(ctx context.Context) ([]Prediction, error)
}

// PayoutStore persists computed payouts per resolved market.
type PayoutStore interface {
	InsertBatch(ctx context.Context, payouts []Payout) error
	ListByMarket(ctx context.Context, marketID uint64) ([]Payout, error)
	ListByBettor(ctx context.Context, bettor common.Address) ([]Payout, error)
}

// FeeWithdrawal records one admin fee withdrawal.
type FeeWithdrawal struct {
	ID        int64
	Caller    common.Address
	Currency  Currency
	Amount    *big.Int
	CreatedAt time.Time
}

// FeeStore persists the fee accumulator and the withdrawal history.
type FeeStore interface {
	SetBalance(ctx context.Context, c Currency, balance *big.Int) error
	Load(ctx context.Context) (FeeBalances, error)
	RecordWithdrawal(ctx context.Context, w FeeWithdrawal) error
	ListWithdrawals(ctx context.Context, opts ListOpts) ([]FeeWithdrawal, error)
}

// SubAdminStore persists the sub-admin set.
type SubAdminStore interface {
	Add(ctx context.Context, addr common.Address) error
	Remove(ctx context.Context, addr common.Address) error
	LoadAll(ctx context.Context) ([]common.Address, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of state-changing operations.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
