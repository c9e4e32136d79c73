package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

// BetService handles stake placement and the prediction read surface.
type BetService struct {
	ledger      *ledger.Ledger
	markets     domain.MarketStore
	predictions domain.PredictionStore
	cache       domain.MarketCache
	bus         domain.SignalBus
	logger      *slog.Logger
}

// NewBetService creates a BetService with all required dependencies.
func NewBetService(
	l *ledger.Ledger,
	markets domain.MarketStore,
	predictions domain.PredictionStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *BetService {
	return &BetService{
		ledger:      l,
		markets:     markets,
		predictions: predictions,
		cache:       cache,
		bus:         bus,
		logger:      logger,
	}
}

// PlaceBet commits a stake to the engine, then mirrors the record and the
// updated pools to the store and invalidates the cached market.
func (s *BetService) PlaceBet(ctx context.Context, marketID uint64, bettor common.Address, side domain.Side, currency domain.Currency, amount *big.Int) (domain.Prediction, error) {
	p, m, err := s.ledger.PlaceBet(marketID, bettor, side, currency, amount)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("bet_service: place: %w", err)
	}

	if err := s.predictions.Insert(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "bet_service: persist prediction failed",
			slog.String("prediction_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.markets.UpdatePools(ctx, marketID, m.Pools); err != nil {
		s.logger.ErrorContext(ctx, "bet_service: persist pools failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "bet_service: cache invalidate failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		// Non-fatal: the cache will eventually expire on its own.
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelBets, "bet_placed", domain.BetPlacedEvent{
		PredictionID: p.ID,
		MarketID:     p.MarketID,
		Bettor:       p.Bettor,
		Side:         p.Side,
		Currency:     p.Currency,
		Amount:       p.Amount,
	})

	s.logger.InfoContext(ctx, "bet_service: bet placed",
		slog.Uint64("market_id", marketID),
		slog.String("bettor", bettor.Hex()),
		slog.String("side", string(side)),
		slog.String("currency", string(currency)),
		slog.String("amount", amount.String()),
	)

	return p, nil
}

// ListPredictions returns the stake records for a market in placement order.
func (s *BetService) ListPredictions(ctx context.Context, marketID uint64) ([]domain.Prediction, error) {
	ps, err := s.ledger.Predictions(marketID)
	if err != nil {
		return nil, fmt.Errorf("bet_service: list predictions %d: %w", marketID, err)
	}
	return ps, nil
}
