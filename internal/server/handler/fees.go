package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// FeeService defines what the fee handler needs from the service layer.
type FeeService interface {
	WithdrawFees(ctx context.Context, caller common.Address, currency domain.Currency, amount *big.Int) (*big.Int, error)
	Balances(ctx context.Context) domain.FeeBalances
	Withdrawals(ctx context.Context, opts domain.ListOpts) ([]domain.FeeWithdrawal, error)
}

// FeeHandler serves the protocol fee endpoints.
type FeeHandler struct {
	fees   FeeService
	logger *slog.Logger
}

// NewFeeHandler creates a FeeHandler.
func NewFeeHandler(fees FeeService, logger *slog.Logger) *FeeHandler {
	return &FeeHandler{
		fees:   fees,
		logger: logger,
	}
}

// withdrawFeesRequest is the body of the withdraw endpoint. Amount is a
// base-10 integer string.
type withdrawFeesRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// GetBalances returns the accrued fee balance per currency plus the aggregate.
// GET /api/fees
func (h *FeeHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances := h.fees.Balances(r.Context())

	writeJSON(w, http.StatusOK, map[string]any{
		"balances": balances,
		"total":    balances.Aggregate(),
	})
}

// WithdrawFees moves accrued fees out of the accumulator. Admin only.
// POST /api/fees/withdraw
func (h *FeeHandler) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	var req withdrawFeesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "amount must be a base-10 integer string")
		return
	}

	remaining, err := h.fees.WithdrawFees(r.Context(), caller, domain.Currency(req.Currency), amount)
	if err != nil {
		writeDomainError(w, err, "failed to withdraw fees")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"currency":  req.Currency,
		"withdrawn": amount.String(),
		"remaining": remaining.String(),
	})
}

// ListWithdrawals returns recorded withdrawals, most recent first.
// GET /api/fees/withdrawals
func (h *FeeHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	withdrawals, err := h.fees.Withdrawals(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err, "failed to list withdrawals")
		return
	}
	if withdrawals == nil {
		withdrawals = []domain.FeeWithdrawal{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"withdrawals": withdrawals,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})
}
