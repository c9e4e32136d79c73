package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/oddslab/predictd/internal/domain"
)

// ContractService exposes the aggregate state snapshot.
type ContractService interface {
	ContractData(ctx context.Context) domain.ContractData
}

// ContractHandler serves the full-state read endpoint.
type ContractHandler struct {
	contract ContractService
	logger   *slog.Logger
}

// NewContractHandler creates a ContractHandler.
func NewContractHandler(contract ContractService, logger *slog.Logger) *ContractHandler {
	return &ContractHandler{
		contract: contract,
		logger:   logger,
	}
}

// GetContractData returns the aggregate engine state: admin registry, all
// markets, all predictions and the aggregate fee balance.
// GET /api/contract
func (h *ContractHandler) GetContractData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.contract.ContractData(r.Context()))
}
