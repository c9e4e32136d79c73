package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	subAdmin = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	bettorA  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bettorB  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

// clock is a settable test clock.
type clock struct {
	now int64
}

func (c *clock) Now() int64 { return c.now }

func newTestLedger(t *testing.T, now int64) (*Ledger, *clock) {
	t.Helper()
	ck := &clock{now: now}
	l := New(Config{
		Admin:      admin,
		FeeRateBps: 200,
		Now:        ck.Now,
	})
	return l, ck
}

func mustCreateMarket(t *testing.T, l *Ledger, start, close int64) domain.Market {
	t.Helper()
	m, err := l.CreateMarket(admin, "will it rain tomorrow?", start, close)
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

func mustBet(t *testing.T, l *Ledger, id uint64, bettor common.Address, side domain.Side, cur domain.Currency, amount int64) domain.Prediction {
	t.Helper()
	p, _, err := l.PlaceBet(id, bettor, side, cur, big.NewInt(amount))
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	return p
}

func TestAddSubAdmin(t *testing.T) {
	l, _ := newTestLedger(t, 0)

	if err := l.AddSubAdmin(stranger, subAdmin); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := l.AddSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("add sub-admin: %v", err)
	}
	// Idempotent.
	if err := l.AddSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("re-add sub-admin: %v", err)
	}
	if got := len(l.SubAdmins()); got != 1 {
		t.Fatalf("expected 1 sub-admin, got %d", got)
	}
	if !l.IsPrivileged(subAdmin) {
		t.Fatal("sub-admin should be privileged")
	}
}

func TestRemoveSubAdmin(t *testing.T) {
	l, _ := newTestLedger(t, 0)

	if err := l.AddSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("add sub-admin: %v", err)
	}
	if err := l.RemoveSubAdmin(subAdmin, subAdmin); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for sub-admin caller, got %v", err)
	}
	if err := l.RemoveSubAdmin(admin, stranger); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// The admin itself is never a member of the set.
	if err := l.RemoveSubAdmin(admin, admin); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing admin, got %v", err)
	}
	if err := l.RemoveSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("remove sub-admin: %v", err)
	}
	if l.IsPrivileged(subAdmin) {
		t.Fatal("removed sub-admin should not be privileged")
	}
}

func TestCreateMarket(t *testing.T) {
	l, _ := newTestLedger(t, 100)

	if _, err := l.CreateMarket(stranger, "q", 0, 1000); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := l.CreateMarket(admin, "q", 1000, 1000); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange for close==start, got %v", err)
	}
	if _, err := l.CreateMarket(admin, "q", 1000, 500); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange for close<start, got %v", err)
	}

	// Backdated start times are permitted.
	m0 := mustCreateMarket(t, l, 0, 1000)
	m1 := mustCreateMarket(t, l, 50, 2000)

	if m0.ID != 0 || m1.ID != 1 {
		t.Fatalf("expected sequential ids 0,1; got %d,%d", m0.ID, m1.ID)
	}
	if l.MarketCount() != 2 {
		t.Fatalf("expected market count 2, got %d", l.MarketCount())
	}
	for _, c := range domain.Currencies() {
		pool := m0.Pools[c]
		if pool.Yes.Sign() != 0 || pool.No.Sign() != 0 {
			t.Fatalf("expected zero-initialized %s pool", c)
		}
	}
	if st, _ := l.MarketState(m0.ID); st != domain.MarketStateOpen {
		t.Fatalf("expected open market, got %s", st)
	}
}

func TestSubAdminCanCreateAndResolve(t *testing.T) {
	l, ck := newTestLedger(t, 0)
	if err := l.AddSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("add sub-admin: %v", err)
	}

	m, err := l.CreateMarket(subAdmin, "q", 0, 1000)
	if err != nil {
		t.Fatalf("sub-admin create market: %v", err)
	}

	ck.now = 1000
	if _, _, err := l.Resolve(subAdmin, m.ID, domain.OutcomeYes); err != nil {
		t.Fatalf("sub-admin resolve: %v", err)
	}
}

func TestPlaceBet(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	m := mustCreateMarket(t, l, 0, 1000)

	if _, _, err := l.PlaceBet(99, bettorA, domain.SideYes, domain.CurrencyTON, big.NewInt(10)); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Fatalf("expected ErrMarketNotFound, got %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, domain.CurrencyTON, big.NewInt(0)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, domain.CurrencyTON, big.NewInt(-5)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, domain.CurrencyTON, nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for nil, got %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, "DOGE", big.NewInt(10)); !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettorA, "maybe", domain.CurrencyTON, big.NewInt(10)); !errors.Is(err, domain.ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}

	p, updated, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, domain.CurrencyTON, big.NewInt(100))
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if p.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected recorded amount 100, got %s", p.Amount)
	}
	if got := updated.Pools[domain.CurrencyTON].Yes; got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected yes pool 100, got %s", got)
	}
}

func TestPlaceBetAfterCloseRejected(t *testing.T) {
	l, ck := newTestLedger(t, 0)
	m := mustCreateMarket(t, l, 0, 1000)

	ck.now = 999
	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 10)

	ck.now = 1000
	if _, _, err := l.PlaceBet(m.ID, bettorA, domain.SideYes, domain.CurrencyTON, big.NewInt(10)); !errors.Is(err, domain.ErrMarketClosed) {
		t.Fatalf("expected ErrMarketClosed at close time, got %v", err)
	}

	// Rejected bet leaves the pool unchanged.
	got, err := l.Market(m.ID)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	if got.Pools[domain.CurrencyTON].Yes.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("pool changed by rejected bet: %s", got.Pools[domain.CurrencyTON].Yes)
	}
}

func TestBetsAccumulateAsSeparateRecords(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	m := mustCreateMarket(t, l, 0, 1000)

	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 10)
	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 15)

	ps, err := l.Predictions(m.ID)
	if err != nil {
		t.Fatalf("predictions: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("expected 2 separate records, got %d", len(ps))
	}
	got, _ := l.Market(m.ID)
	if got.Pools[domain.CurrencyTON].Yes.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected additive pool 25, got %s", got.Pools[domain.CurrencyTON].Yes)
	}
}

// Pool balances must always equal the sum of stake records per
// market/currency/side.
func TestPoolsReconcileWithStakes(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	m := mustCreateMarket(t, l, 0, 1000)

	bets := []struct {
		bettor common.Address
		side   domain.Side
		cur    domain.Currency
		amount int64
	}{
		{bettorA, domain.SideYes, domain.CurrencyTON, 100},
		{bettorB, domain.SideNo, domain.CurrencyTON, 300},
		{bettorA, domain.SideYes, domain.CurrencyUSDT, 40},
		{bettorB, domain.SideYes, domain.CurrencyUSDT, 60},
		{bettorA, domain.SideNo, domain.CurrencyUSDT, 7},
		{bettorA, domain.SideYes, domain.CurrencyTON, 1},
	}
	for _, b := range bets {
		mustBet(t, l, m.ID, b.bettor, b.side, b.cur, b.amount)
	}

	got, _ := l.Market(m.ID)
	ps, _ := l.Predictions(m.ID)
	for _, c := range domain.Currencies() {
		for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
			sum := new(big.Int)
			for _, p := range ps {
				if p.Currency == c && p.Side == side {
					sum.Add(sum, p.Amount)
				}
			}
			if pool := got.Pools[c].SideAmount(side); pool.Cmp(sum) != 0 {
				t.Fatalf("%s/%s pool %s != stake sum %s", c, side, pool, sum)
			}
		}
	}
}

func TestContractDataSnapshot(t *testing.T) {
	l, _ := newTestLedger(t, 0)

	// Empty engine: nullable collections are nil.
	data := l.ContractData()
	if data.AdminAddress != admin {
		t.Fatalf("expected admin %s, got %s", admin, data.AdminAddress)
	}
	if data.SubAdmins != nil || data.Markets != nil || data.Predictions != nil {
		t.Fatal("expected nil collections on empty engine")
	}
	if data.MarketCount != 0 || data.SubAdminCount != 0 {
		t.Fatal("expected zero counts on empty engine")
	}
	if data.Fees.Sign() != 0 {
		t.Fatalf("expected zero fees, got %s", data.Fees)
	}

	m := mustCreateMarket(t, l, 0, 1000)
	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 100)

	data = l.ContractData()
	if data.MarketCount != 1 || len(data.Markets) != 1 || len(data.Predictions[m.ID]) != 1 {
		t.Fatal("snapshot missing market or prediction")
	}

	// The snapshot is a deep copy: mutating it must not touch engine state.
	data.Markets[m.ID].Pools[domain.CurrencyTON].Yes.SetInt64(999)
	fresh, _ := l.Market(m.ID)
	if fresh.Pools[domain.CurrencyTON].Yes.Cmp(big.NewInt(100)) != 0 {
		t.Fatal("snapshot mutation leaked into engine state")
	}
}

func TestMarketViewShape(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	m := mustCreateMarket(t, l, 0, 1000)
	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 100)
	mustBet(t, l, m.ID, bettorB, domain.SideNo, domain.CurrencyTON, 300)

	v, err := l.MarketView(m.ID)
	if err != nil {
		t.Fatalf("market view: %v", err)
	}
	if v.YesPool.Cmp(big.NewInt(100)) != 0 || v.NoPool.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected pools %s/%s", v.YesPool, v.NoPool)
	}
	if v.Outcome != 0 {
		t.Fatalf("expected outcome code 0, got %d", v.Outcome)
	}
	if v.StartTime != 0 || v.CloseTime != 1000 {
		t.Fatalf("unexpected times %d/%d", v.StartTime, v.CloseTime)
	}
}

func TestWithdrawFees(t *testing.T) {
	l, ck := newTestLedger(t, 0)
	if err := l.AddSubAdmin(admin, subAdmin); err != nil {
		t.Fatalf("add sub-admin: %v", err)
	}
	m := mustCreateMarket(t, l, 0, 1000)
	mustBet(t, l, m.ID, bettorA, domain.SideYes, domain.CurrencyTON, 100)
	mustBet(t, l, m.ID, bettorB, domain.SideNo, domain.CurrencyTON, 300)
	ck.now = 1000
	if _, _, err := l.Resolve(admin, m.ID, domain.OutcomeYes); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// fee = floor(400*200/10000) = 8

	if _, err := l.WithdrawFees(subAdmin, domain.CurrencyTON, big.NewInt(1)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for sub-admin, got %v", err)
	}
	if _, err := l.WithdrawFees(admin, domain.CurrencyTON, big.NewInt(0)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.WithdrawFees(admin, domain.CurrencyTON, big.NewInt(9)); !errors.Is(err, domain.ErrInsufficientFees) {
		t.Fatalf("expected ErrInsufficientFees, got %v", err)
	}
	remaining, err := l.WithdrawFees(admin, domain.CurrencyTON, big.NewInt(5))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if remaining.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected remaining 3, got %s", remaining)
	}
	if got := l.Fees()[domain.CurrencyTON]; got.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("expected accumulator 3, got %s", got)
	}
}

func TestRestoreContinuesSequence(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	m0 := mustCreateMarket(t, l, 0, 1000)
	mustCreateMarket(t, l, 0, 2000)
	p := mustBet(t, l, m0.ID, bettorA, domain.SideYes, domain.CurrencyTON, 100)

	data := l.ContractData()

	restored, _ := newTestLedger(t, 0)
	var markets []domain.Market
	for _, m := range data.Markets {
		markets = append(markets, m)
	}
	restored.Restore(markets, data.Predictions[m0.ID], data.SubAdmins, domain.FeeBalances{})

	if restored.MarketCount() != 2 {
		t.Fatalf("expected restored count 2, got %d", restored.MarketCount())
	}
	ps, err := restored.Predictions(m0.ID)
	if err != nil || len(ps) != 1 || ps[0].ID != p.ID {
		t.Fatalf("restored predictions mismatch: %v %v", ps, err)
	}

	next := mustCreateMarket(t, restored, 0, 3000)
	if next.ID != 2 {
		t.Fatalf("expected next id 2 after restore, got %d", next.ID)
	}
}
