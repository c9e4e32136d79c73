package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, caller common.Address, question string, startTime, closeTime int64) (domain.Market, error)
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	GetMarketView(ctx context.Context, id uint64) (domain.MarketView, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) []domain.Market
	Count(ctx context.Context) uint64
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// createMarketRequest is the body of the create endpoint. Times are unix
// seconds.
type createMarketRequest struct {
	Question  string `json:"question"`
	StartTime int64  `json:"startTime"`
	CloseTime int64  `json:"closeTime"`
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   uint64          `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// CreateMarket opens a new binary market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	market, err := h.markets.CreateMarket(r.Context(), caller, req.Question, req.StartTime, req.CloseTime)
	if err != nil {
		writeDomainError(w, err, "failed to create market")
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// ListMarkets returns registered markets in id order with pagination.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets := h.markets.ListMarkets(r.Context(), opts)
	total := h.markets.Count(r.Context())

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns the getter-compatible view of a single market.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	view, err := h.markets.GetMarketView(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// GetMarketDetail returns the full market record with per-currency pools.
// GET /api/markets/{id}/detail
func (h *MarketHandler) GetMarketDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}
