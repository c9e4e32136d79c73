// Package ledger implements the authoritative prediction-market accounting
// engine: admin registry, market registry, per-currency betting pools, the
// stake ledger, and outcome resolution with fee extraction.
//
// All state-changing operations commit under a single write lock, mirroring
// the single-threaded executor of the original contract environment. Reads
// take the read lock and return deep copies, so callers never observe a
// partial pool update.
package ledger

import (
	"bytes"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// DefaultFeeRateBps is the protocol fee applied to each resolved market's
// combined pool when no rate is configured (2%).
const DefaultFeeRateBps = 200

// Config carries the initialization parameters of a ledger instance. Admin
// is required and immutable afterwards, exactly as the deploy message of the
// original contract fixed it.
type Config struct {
	Admin      common.Address
	FeeRateBps int64

	// Now returns the current unix timestamp in seconds. Defaults to the
	// wall clock; tests inject a fixed clock.
	Now func() int64
}

// Ledger is the engine state. A zero Ledger is not usable; construct with New.
type Ledger struct {
	mu sync.RWMutex

	admin      common.Address
	subAdmins  map[common.Address]struct{}
	markets    map[uint64]*domain.Market
	orders     []uint64 // market ids in creation order
	stakes     map[uint64][]domain.Prediction
	payouts    map[uint64][]domain.Payout
	fees       domain.FeeBalances
	feeRateBps int64
	nextID     uint64
	now        func() int64
}

// New creates an empty ledger owned by cfg.Admin: no sub-admins, no markets,
// zero fees.
func New(cfg Config) *Ledger {
	rate := cfg.FeeRateBps
	if rate <= 0 {
		rate = DefaultFeeRateBps
	}
	now := cfg.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	fees := make(domain.FeeBalances, 2)
	for _, c := range domain.Currencies() {
		fees[c] = newInt()
	}

	return &Ledger{
		admin:      cfg.Admin,
		subAdmins:  make(map[common.Address]struct{}),
		markets:    make(map[uint64]*domain.Market),
		stakes:     make(map[uint64][]domain.Prediction),
		payouts:    make(map[uint64][]domain.Payout),
		fees:       fees,
		feeRateBps: rate,
		now:        now,
	}
}

// Admin returns the immutable root admin address.
func (l *Ledger) Admin() common.Address {
	return l.admin
}

// FeeRateBps returns the configured protocol fee rate in basis points.
func (l *Ledger) FeeRateBps() int64 {
	return l.feeRateBps
}

// IsPrivileged reports whether addr is the admin or a sub-admin.
func (l *Ledger) IsPrivileged(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isPrivileged(addr)
}

func (l *Ledger) isPrivileged(addr common.Address) bool {
	if addr == l.admin {
		return true
	}
	_, ok := l.subAdmins[addr]
	return ok
}

// AddSubAdmin grants target the same privileged rights as the admin except
// admin-set mutation. Only the admin may call it. Adding an address that is
// already a sub-admin (or the admin itself) is a no-op.
func (l *Ledger) AddSubAdmin(caller, target common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return domain.ErrUnauthorized
	}
	if target == l.admin {
		return nil
	}
	l.subAdmins[target] = struct{}{}
	return nil
}

// RemoveSubAdmin revokes target's sub-admin rights. Only the admin may call
// it. The admin is never a removal target: it is not a member of the set, so
// removing it reports ErrNotFound like any absent address.
func (l *Ledger) RemoveSubAdmin(caller, target common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return domain.ErrUnauthorized
	}
	if _, ok := l.subAdmins[target]; !ok {
		return domain.ErrNotFound
	}
	delete(l.subAdmins, target)
	return nil
}

// SubAdmins returns the current sub-admin set sorted by address, nil when
// empty.
func (l *Ledger) SubAdmins() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.subAdminList()
}

func (l *Ledger) subAdminList() []common.Address {
	if len(l.subAdmins) == 0 {
		return nil
	}
	out := make([]common.Address, 0, len(l.subAdmins))
	for a := range l.subAdmins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func newInt() *big.Int { return new(big.Int) }
