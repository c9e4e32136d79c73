package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// ResolutionService defines what the resolve handler needs.
type ResolutionService interface {
	Resolve(ctx context.Context, caller common.Address, marketID uint64, outcome domain.Outcome) (domain.Settlement, error)
	Payouts(ctx context.Context, marketID uint64) ([]domain.Payout, error)
}

// ResolveHandler serves market resolution and payout queries.
type ResolveHandler struct {
	resolutions ResolutionService
	logger      *slog.Logger
}

// NewResolveHandler creates a ResolveHandler.
func NewResolveHandler(resolutions ResolutionService, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolutions: resolutions,
		logger:      logger,
	}
}

// resolveRequest is the body of the resolve endpoint. Outcome is the winning
// side: "yes" or "no".
type resolveRequest struct {
	Outcome string `json:"outcome"`
}

// outcomeFromString maps the request outcome onto the engine code.
func outcomeFromString(s string) (domain.Outcome, bool) {
	switch s {
	case "yes":
		return domain.OutcomeYes, true
	case "no":
		return domain.OutcomeNo, true
	default:
		return domain.OutcomeUnresolved, false
	}
}

// Resolve settles a closed market, computing fees and pro-rata payouts.
// POST /api/markets/{id}/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, ok := outcomeFromString(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, `outcome must be "yes" or "no"`)
		return
	}

	settlement, err := h.resolutions.Resolve(r.Context(), caller, id, outcome)
	if err != nil {
		writeDomainError(w, err, "failed to resolve market")
		return
	}

	writeJSON(w, http.StatusOK, settlement)
}

// ListPayouts returns the payouts computed when a market was resolved.
// GET /api/markets/{id}/payouts
func (h *ResolveHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	payouts, err := h.resolutions.Payouts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to list payouts")
		return
	}
	if payouts == nil {
		payouts = []domain.Payout{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"marketId": id,
		"payouts":  payouts,
	})
}
