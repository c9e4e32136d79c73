package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

// MarketService handles market creation and the market read surface.
type MarketService struct {
	ledger  *ledger.Ledger
	markets domain.MarketStore
	cache   domain.MarketCache
	bus     domain.SignalBus
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	l *ledger.Ledger,
	markets domain.MarketStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		ledger:  l,
		markets: markets,
		cache:   cache,
		bus:     bus,
		audit:   audit,
		logger:  logger,
	}
}

// CreateMarket commits a new market to the engine, then mirrors it to the
// store, warms the cache, and announces it on the bus.
func (s *MarketService) CreateMarket(ctx context.Context, caller common.Address, question string, startTime, closeTime int64) (domain.Market, error) {
	m, err := s.ledger.CreateMarket(caller, question, startTime, closeTime)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	if err := s.markets.Insert(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "market_service: persist market failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Uint64("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_created", map[string]any{
		"market_id":  m.ID,
		"question":   m.Question,
		"close_time": m.CloseTime,
		"created_by": m.CreatedBy.Hex(),
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelMarkets, "market_created", domain.MarketCreatedEvent{
		MarketID:  m.ID,
		Question:  m.Question,
		StartTime: m.StartTime,
		CloseTime: m.CloseTime,
		CreatedBy: m.CreatedBy,
	})

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.Uint64("market_id", m.ID),
		slog.Int64("close_time", m.CloseTime),
	)

	return m, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the engine on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	// Try the cache first.
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	// Cache miss or error -- fall through to the engine.
	m, err = s.ledger.Market(id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %d: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Uint64("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// GetMarketView returns the single-pool query shape for one market.
func (s *MarketService) GetMarketView(ctx context.Context, id uint64) (domain.MarketView, error) {
	v, err := s.ledger.MarketView(id)
	if err != nil {
		return domain.MarketView{}, fmt.Errorf("market_service: view %d: %w", id, err)
	}
	return v, nil
}

// ListMarkets returns markets in creation order with pagination.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) []domain.Market {
	return s.ledger.Markets(opts)
}

// ContractData returns the aggregate engine snapshot.
func (s *MarketService) ContractData(ctx context.Context) domain.ContractData {
	return s.ledger.ContractData()
}

// Count returns the number of markets ever created.
func (s *MarketService) Count(ctx context.Context) uint64 {
	return s.ledger.MarketCount()
}
