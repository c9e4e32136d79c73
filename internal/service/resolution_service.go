package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

// DefaultLockTTL bounds how long a crashed resolver can block a market.
const DefaultLockTTL = 10 * time.Second

// ResolutionService drives market settlement: outcome commit, payout
// persistence, fee accounting, cold-storage archival, and event fan-out.
type ResolutionService struct {
	ledger   *ledger.Ledger
	locks    domain.LockManager
	markets  domain.MarketStore
	payouts  domain.PayoutStore
	fees     domain.FeeStore
	cache    domain.MarketCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	archiver domain.SettlementArchiver
	logger   *slog.Logger
	lockTTL  time.Duration
}

// NewResolutionService creates a ResolutionService with all required
// dependencies. A non-positive lockTTL falls back to DefaultLockTTL.
func NewResolutionService(
	l *ledger.Ledger,
	locks domain.LockManager,
	markets domain.MarketStore,
	payouts domain.PayoutStore,
	fees domain.FeeStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	archiver domain.SettlementArchiver,
	logger *slog.Logger,
	lockTTL time.Duration,
) *ResolutionService {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &ResolutionService{
		ledger:   l,
		locks:    locks,
		markets:  markets,
		payouts:  payouts,
		fees:     fees,
		cache:    cache,
		bus:      bus,
		audit:    audit,
		archiver: archiver,
		logger:   logger,
		lockTTL:  lockTTL,
	}
}

func resolveLockKey(marketID uint64) string {
	return fmt.Sprintf("resolve:market:%d", marketID)
}

// Resolve settles a market. A per-market distributed lock serialises resolve
// attempts across processes; within the process the engine's own state check
// guarantees the Closed -> Resolved transition happens exactly once.
func (s *ResolutionService) Resolve(ctx context.Context, caller common.Address, marketID uint64, outcome domain.Outcome) (domain.Settlement, error) {
	unlock, err := s.locks.Acquire(ctx, resolveLockKey(marketID), s.lockTTL)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("resolution_service: lock market %d: %w", marketID, err)
	}
	defer unlock()

	settlement, market, err := s.ledger.Resolve(caller, marketID, outcome)
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("resolution_service: resolve market %d: %w", marketID, err)
	}

	// Write-through: outcome, payouts, and the updated fee accumulator.
	if err := s.markets.MarkResolved(ctx, marketID, settlement.Outcome, settlement.ResolvedAt); err != nil {
		s.logger.ErrorContext(ctx, "resolution_service: persist outcome failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.payouts.InsertBatch(ctx, settlement.Payouts); err != nil {
		s.logger.ErrorContext(ctx, "resolution_service: persist payouts failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	for c, balance := range s.ledger.Fees() {
		if err := s.fees.SetBalance(ctx, c, balance); err != nil {
			s.logger.ErrorContext(ctx, "resolution_service: persist fee balance failed",
				slog.String("currency", string(c)),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "resolution_service: cache invalidate failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	// Cold storage settlement report; retryable offline if it fails.
	if err := s.archiver.ArchiveSettlement(ctx, market, settlement); err != nil {
		s.logger.WarnContext(ctx, "resolution_service: archive settlement failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_resolved", map[string]any{
		"market_id":   marketID,
		"outcome":     int(settlement.Outcome),
		"resolved_by": caller.Hex(),
		"payouts":     len(settlement.Payouts),
	}); err != nil {
		s.logger.WarnContext(ctx, "resolution_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelResolutions, "market_resolved", domain.MarketResolvedEvent{
		MarketID:   marketID,
		Outcome:    settlement.Outcome,
		ResolvedBy: caller,
		Payouts:    len(settlement.Payouts),
	})

	s.logger.InfoContext(ctx, "resolution_service: market resolved",
		slog.Uint64("market_id", marketID),
		slog.Int("outcome", int(settlement.Outcome)),
		slog.Int("payouts", len(settlement.Payouts)),
	)

	return settlement, nil
}

// Payouts returns the payouts computed for a resolved market.
func (s *ResolutionService) Payouts(ctx context.Context, marketID uint64) ([]domain.Payout, error) {
	ps, err := s.ledger.Payouts(marketID)
	if err != nil {
		return nil, fmt.Errorf("resolution_service: payouts %d: %w", marketID, err)
	}
	return ps, nil
}
