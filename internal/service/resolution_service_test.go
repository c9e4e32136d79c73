package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bettor = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

// fakeLocks records acquisitions and can simulate a held lock.
type fakeLocks struct {
	held     bool
	acquired []string
	released int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held {
		return nil, domain.ErrLockHeld
	}
	f.acquired = append(f.acquired, key)
	return func() { f.released++ }, nil
}

// fakeMarketStore can fail every write to exercise the write-through policy.
type fakeMarketStore struct {
	failWrites bool
	resolved   []uint64
}

func (f *fakeMarketStore) Insert(ctx context.Context, m domain.Market) error {
	if f.failWrites {
		return errors.New("db down")
	}
	return nil
}

func (f *fakeMarketStore) UpdatePools(ctx context.Context, id uint64, pools map[domain.Currency]domain.Pool) error {
	if f.failWrites {
		return errors.New("db down")
	}
	return nil
}

func (f *fakeMarketStore) MarkResolved(ctx context.Context, id uint64, outcome domain.Outcome, resolvedAt time.Time) error {
	if f.failWrites {
		return errors.New("db down")
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeMarketStore) GetByID(ctx context.Context, id uint64) (domain.Market, error) {
	return domain.Market{}, domain.ErrMarketNotFound
}

func (f *fakeMarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeMarketStore) LoadAll(ctx context.Context) ([]domain.Market, error) { return nil, nil }
func (f *fakeMarketStore) Count(ctx context.Context) (int64, error)             { return 0, nil }

type fakePayoutStore struct {
	failWrites bool
	inserted   []domain.Payout
}

func (f *fakePayoutStore) InsertBatch(ctx context.Context, payouts []domain.Payout) error {
	if f.failWrites {
		return errors.New("db down")
	}
	f.inserted = append(f.inserted, payouts...)
	return nil
}

func (f *fakePayoutStore) ListByMarket(ctx context.Context, marketID uint64) ([]domain.Payout, error) {
	return nil, nil
}

func (f *fakePayoutStore) ListByBettor(ctx context.Context, bettor common.Address) ([]domain.Payout, error) {
	return nil, nil
}

type fakeFeeStore struct {
	failWrites bool
	balances   map[domain.Currency]*big.Int
}

func (f *fakeFeeStore) SetBalance(ctx context.Context, c domain.Currency, balance *big.Int) error {
	if f.failWrites {
		return errors.New("db down")
	}
	if f.balances == nil {
		f.balances = make(map[domain.Currency]*big.Int)
	}
	f.balances[c] = new(big.Int).Set(balance)
	return nil
}

func (f *fakeFeeStore) Load(ctx context.Context) (domain.FeeBalances, error) { return nil, nil }

func (f *fakeFeeStore) RecordWithdrawal(ctx context.Context, w domain.FeeWithdrawal) error {
	return nil
}

func (f *fakeFeeStore) ListWithdrawals(ctx context.Context, opts domain.ListOpts) ([]domain.FeeWithdrawal, error) {
	return nil, nil
}

type fakeCache struct{}

func (fakeCache) Set(ctx context.Context, m domain.Market) error { return nil }
func (fakeCache) Get(ctx context.Context, id uint64) (domain.Market, error) {
	return domain.Market{}, domain.ErrNotFound
}
func (fakeCache) Invalidate(ctx context.Context, id uint64) error { return nil }

type fakeBus struct{}

func (fakeBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }
func (fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}
func (fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error { return nil }
func (fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fakeAudit struct{}

func (fakeAudit) Log(ctx context.Context, event string, detail map[string]any) error { return nil }
func (fakeAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeArchiver struct {
	archived int
}

func (f *fakeArchiver) ArchiveSettlement(ctx context.Context, market domain.Market, settlement domain.Settlement) error {
	f.archived++
	return nil
}

// closedMarketLedger builds a ledger with one closed market carrying stakes
// on both sides of the TON pool.
func closedMarketLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	now := int64(0)
	l := ledger.New(ledger.Config{
		Admin:      admin,
		FeeRateBps: 200,
		Now:        func() int64 { return now },
	})

	m, err := l.CreateMarket(admin, "Will it rain tomorrow?", 0, 1000)
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, bettor, domain.SideYes, domain.CurrencyTON, big.NewInt(100)); err != nil {
		t.Fatalf("PlaceBet yes: %v", err)
	}
	if _, _, err := l.PlaceBet(m.ID, admin, domain.SideNo, domain.CurrencyTON, big.NewInt(300)); err != nil {
		t.Fatalf("PlaceBet no: %v", err)
	}

	// Past close time; the ledger holds the clock closure by reference so
	// rebuilding is unnecessary.
	now = 2000
	return l
}

func newResolutionService(l *ledger.Ledger, locks domain.LockManager, markets *fakeMarketStore, payouts *fakePayoutStore, fees *fakeFeeStore, archiver *fakeArchiver) *ResolutionService {
	return NewResolutionService(
		l, locks, markets, payouts, fees,
		fakeCache{}, fakeBus{}, fakeAudit{}, archiver,
		testLogger(), time.Second,
	)
}

func TestResolveWritesThrough(t *testing.T) {
	l := closedMarketLedger(t)
	locks := &fakeLocks{}
	markets := &fakeMarketStore{}
	payouts := &fakePayoutStore{}
	fees := &fakeFeeStore{}
	archiver := &fakeArchiver{}
	svc := newResolutionService(l, locks, markets, payouts, fees, archiver)

	settlement, err := svc.Resolve(context.Background(), admin, 0, domain.OutcomeYes)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(locks.acquired) != 1 || locks.acquired[0] != "resolve:market:0" {
		t.Errorf("lock keys = %v, want [resolve:market:0]", locks.acquired)
	}
	if locks.released != 1 {
		t.Errorf("lock released %d times, want 1", locks.released)
	}
	if len(markets.resolved) != 1 || markets.resolved[0] != 0 {
		t.Errorf("resolved markets = %v, want [0]", markets.resolved)
	}
	if len(payouts.inserted) != len(settlement.Payouts) {
		t.Errorf("persisted %d payouts, settlement has %d", len(payouts.inserted), len(settlement.Payouts))
	}
	// 400 total, 2% fee = 8.
	if got := fees.balances[domain.CurrencyTON]; got == nil || got.Cmp(big.NewInt(8)) != 0 {
		t.Errorf("persisted TON fee balance = %v, want 8", got)
	}
	if archiver.archived != 1 {
		t.Errorf("archived %d settlements, want 1", archiver.archived)
	}
}

func TestResolveSucceedsWhenStoreFails(t *testing.T) {
	l := closedMarketLedger(t)
	locks := &fakeLocks{}
	markets := &fakeMarketStore{failWrites: true}
	payouts := &fakePayoutStore{failWrites: true}
	fees := &fakeFeeStore{failWrites: true}
	svc := newResolutionService(l, locks, markets, payouts, fees, &fakeArchiver{})

	settlement, err := svc.Resolve(context.Background(), admin, 0, domain.OutcomeYes)
	if err != nil {
		t.Fatalf("Resolve with failing stores: %v", err)
	}
	if settlement.Fee[domain.CurrencyTON].Cmp(big.NewInt(8)) != 0 {
		t.Errorf("fee = %s, want 8", settlement.Fee[domain.CurrencyTON])
	}

	// The ledger committed; a later read sees the market resolved.
	m, err := l.Market(0)
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if !m.Resolved {
		t.Error("market not resolved in ledger")
	}
}

func TestResolveBlockedByHeldLock(t *testing.T) {
	l := closedMarketLedger(t)
	svc := newResolutionService(l, &fakeLocks{held: true}, &fakeMarketStore{}, &fakePayoutStore{}, &fakeFeeStore{}, &fakeArchiver{})

	_, err := svc.Resolve(context.Background(), admin, 0, domain.OutcomeYes)
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}

	// The ledger was never touched.
	m, err := l.Market(0)
	if err != nil {
		t.Fatalf("Market: %v", err)
	}
	if m.Resolved {
		t.Error("market resolved despite held lock")
	}
}

func TestResolveUnauthorizedReleasesLock(t *testing.T) {
	l := closedMarketLedger(t)
	locks := &fakeLocks{}
	svc := newResolutionService(l, locks, &fakeMarketStore{}, &fakePayoutStore{}, &fakeFeeStore{}, &fakeArchiver{})

	_, err := svc.Resolve(context.Background(), bettor, 0, domain.OutcomeYes)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if locks.released != 1 {
		t.Errorf("lock released %d times, want 1", locks.released)
	}
}
