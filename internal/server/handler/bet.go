package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// BetService defines what the bet handler needs from the service layer.
type BetService interface {
	PlaceBet(ctx context.Context, marketID uint64, bettor common.Address, side domain.Side, currency domain.Currency, amount *big.Int) (domain.Prediction, error)
	ListPredictions(ctx context.Context, marketID uint64) ([]domain.Prediction, error)
}

// BetHandler serves prediction placement and listing.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logger,
	}
}

// placeBetRequest is the body of the bet endpoint. Amount is a base-10
// integer string in the currency's smallest unit.
type placeBetRequest struct {
	Side     string `json:"side"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// PlaceBet stakes an amount on one side of an open market.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	bettor, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	var req placeBetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "amount must be a base-10 integer string")
		return
	}

	pred, err := h.bets.PlaceBet(r.Context(), id, bettor, domain.Side(req.Side), domain.Currency(req.Currency), amount)
	if err != nil {
		writeDomainError(w, err, "failed to place bet")
		return
	}

	writeJSON(w, http.StatusCreated, pred)
}

// ListPredictions returns all predictions for a market in placement order.
// GET /api/markets/{id}/predictions
func (h *BetHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	preds, err := h.bets.ListPredictions(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to list predictions")
		return
	}
	if preds == nil {
		preds = []domain.Prediction{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"marketId":    id,
		"predictions": preds,
	})
}
