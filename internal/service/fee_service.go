package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

// FeeService handles the fee accumulator: balances, withdrawals, history.
type FeeService struct {
	ledger *ledger.Ledger
	fees   domain.FeeStore
	bus    domain.SignalBus
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewFeeService creates a FeeService with all required dependencies.
func NewFeeService(
	l *ledger.Ledger,
	fees domain.FeeStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *FeeService {
	return &FeeService{
		ledger: l,
		fees:   fees,
		bus:    bus,
		audit:  audit,
		logger: logger,
	}
}

// WithdrawFees debits the accumulator for one currency and records the
// withdrawal. Only the root admin may withdraw. It returns the remaining
// balance.
func (s *FeeService) WithdrawFees(ctx context.Context, caller common.Address, currency domain.Currency, amount *big.Int) (*big.Int, error) {
	remaining, err := s.ledger.WithdrawFees(caller, currency, amount)
	if err != nil {
		return nil, fmt.Errorf("fee_service: withdraw: %w", err)
	}

	if err := s.fees.SetBalance(ctx, currency, remaining); err != nil {
		s.logger.ErrorContext(ctx, "fee_service: persist balance failed",
			slog.String("currency", string(currency)),
			slog.String("error", err.Error()),
		)
	}
	if err := s.fees.RecordWithdrawal(ctx, domain.FeeWithdrawal{
		Caller:    caller,
		Currency:  currency,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "fee_service: record withdrawal failed",
			slog.String("currency", string(currency)),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "fees_withdrawn", map[string]any{
		"caller":   caller.Hex(),
		"currency": string(currency),
		"amount":   amount.String(),
	}); err != nil {
		s.logger.WarnContext(ctx, "fee_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelFees, "fees_withdrawn", domain.FeesWithdrawnEvent{
		Caller:   caller,
		Currency: currency,
		Amount:   amount,
	})

	s.logger.InfoContext(ctx, "fee_service: fees withdrawn",
		slog.String("currency", string(currency)),
		slog.String("amount", amount.String()),
		slog.String("remaining", remaining.String()),
	)

	return remaining, nil
}

// Balances returns the per-currency fee accumulator.
func (s *FeeService) Balances(ctx context.Context) domain.FeeBalances {
	return s.ledger.Fees()
}

// Withdrawals returns the withdrawal history, newest first.
func (s *FeeService) Withdrawals(ctx context.Context, opts domain.ListOpts) ([]domain.FeeWithdrawal, error) {
	ws, err := s.fees.ListWithdrawals(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fee_service: list withdrawals: %w", err)
	}
	return ws, nil
}
