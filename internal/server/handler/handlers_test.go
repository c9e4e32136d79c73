package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
)

var (
	testAdmin  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testBettor = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// fakeMarketService implements MarketService with canned results.
type fakeMarketService struct {
	market    domain.Market
	view      domain.MarketView
	createErr error
	getErr    error
}

func (f *fakeMarketService) CreateMarket(ctx context.Context, caller common.Address, question string, startTime, closeTime int64) (domain.Market, error) {
	if f.createErr != nil {
		return domain.Market{}, f.createErr
	}
	return f.market, nil
}

func (f *fakeMarketService) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	if f.getErr != nil {
		return domain.Market{}, f.getErr
	}
	return f.market, nil
}

func (f *fakeMarketService) GetMarketView(ctx context.Context, id uint64) (domain.MarketView, error) {
	if f.getErr != nil {
		return domain.MarketView{}, f.getErr
	}
	return f.view, nil
}

func (f *fakeMarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) []domain.Market {
	return []domain.Market{f.market}
}

func (f *fakeMarketService) Count(ctx context.Context) uint64 { return 1 }

// fakeBetService implements BetService.
type fakeBetService struct {
	prediction domain.Prediction
	placeErr   error
}

func (f *fakeBetService) PlaceBet(ctx context.Context, marketID uint64, bettor common.Address, side domain.Side, currency domain.Currency, amount *big.Int) (domain.Prediction, error) {
	if f.placeErr != nil {
		return domain.Prediction{}, f.placeErr
	}
	return f.prediction, nil
}

func (f *fakeBetService) ListPredictions(ctx context.Context, marketID uint64) ([]domain.Prediction, error) {
	return []domain.Prediction{f.prediction}, nil
}

// fakeResolutionService implements ResolutionService.
type fakeResolutionService struct {
	settlement domain.Settlement
	resolveErr error
	outcome    domain.Outcome
}

func (f *fakeResolutionService) Resolve(ctx context.Context, caller common.Address, marketID uint64, outcome domain.Outcome) (domain.Settlement, error) {
	f.outcome = outcome
	if f.resolveErr != nil {
		return domain.Settlement{}, f.resolveErr
	}
	return f.settlement, nil
}

func (f *fakeResolutionService) Payouts(ctx context.Context, marketID uint64) ([]domain.Payout, error) {
	return nil, nil
}

func newMux(markets MarketService, bets BetService, resolutions ResolutionService) *http.ServeMux {
	mux := http.NewServeMux()
	mh := NewMarketHandler(markets, testLogger())
	mux.HandleFunc("GET /api/markets", mh.ListMarkets)
	mux.HandleFunc("POST /api/markets", mh.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", mh.GetMarket)
	bh := NewBetHandler(bets, testLogger())
	mux.HandleFunc("POST /api/markets/{id}/bets", bh.PlaceBet)
	rh := NewResolveHandler(resolutions, testLogger())
	mux.HandleFunc("POST /api/markets/{id}/resolve", rh.Resolve)
	return mux
}

func TestGetMarketReturnsView(t *testing.T) {
	markets := &fakeMarketService{
		view: domain.MarketView{
			Question:  "Will it rain tomorrow?",
			StartTime: 100,
			CloseTime: 200,
			YesPool:   big.NewInt(40),
			NoPool:    big.NewInt(60),
			Outcome:   0,
		},
	}
	mux := newMux(markets, &fakeBetService{}, &fakeResolutionService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets/3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["question"] != "Will it rain tomorrow?" {
		t.Errorf("question = %v", body["question"])
	}
	if body["yesPool"] != "40" && body["yesPool"] != float64(40) {
		t.Errorf("yesPool = %v (%T)", body["yesPool"], body["yesPool"])
	}
}

func TestGetMarketNotFound(t *testing.T) {
	markets := &fakeMarketService{getErr: domain.ErrMarketNotFound}
	mux := newMux(markets, &fakeBetService{}, &fakeResolutionService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets/99", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetMarketRejectsBadID(t *testing.T) {
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, &fakeResolutionService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets/abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateMarketRequiresCaller(t *testing.T) {
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets",
		strings.NewReader(`{"question":"q","startTime":1,"closeTime":2}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateMarketUnauthorized(t *testing.T) {
	markets := &fakeMarketService{createErr: domain.ErrUnauthorized}
	mux := newMux(markets, &fakeBetService{}, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets",
		strings.NewReader(`{"question":"q","startTime":1,"closeTime":2}`))
	req.Header.Set("X-Caller", testBettor.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestCreateMarketOK(t *testing.T) {
	markets := &fakeMarketService{market: domain.Market{ID: 5, Question: "q"}}
	mux := newMux(markets, &fakeBetService{}, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets",
		strings.NewReader(`{"question":"q","startTime":1,"closeTime":2}`))
	req.Header.Set("X-Caller", testAdmin.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
}

func TestPlaceBetRejectsBadAmount(t *testing.T) {
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/bets",
		strings.NewReader(`{"side":"yes","currency":"TON","amount":"not-a-number"}`))
	req.Header.Set("X-Caller", testBettor.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPlaceBetClosedMarketConflict(t *testing.T) {
	bets := &fakeBetService{placeErr: domain.ErrMarketClosed}
	mux := newMux(&fakeMarketService{}, bets, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/bets",
		strings.NewReader(`{"side":"yes","currency":"TON","amount":"100"}`))
	req.Header.Set("X-Caller", testBettor.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestPlaceBetOK(t *testing.T) {
	bets := &fakeBetService{prediction: domain.Prediction{
		ID:       "p-1",
		MarketID: 1,
		Bettor:   testBettor,
		Side:     domain.SideYes,
		Currency: domain.CurrencyTON,
		Amount:   big.NewInt(100),
	}}
	mux := newMux(&fakeMarketService{}, bets, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/bets",
		strings.NewReader(`{"side":"yes","currency":"TON","amount":"100"}`))
	req.Header.Set("X-Caller", testBettor.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
}

func TestResolveOutcomeMapping(t *testing.T) {
	resolutions := &fakeResolutionService{}
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, resolutions)

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/resolve",
		strings.NewReader(`{"outcome":"no"}`))
	req.Header.Set("X-Caller", testAdmin.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if resolutions.outcome != domain.OutcomeNo {
		t.Errorf("outcome = %d, want %d", resolutions.outcome, domain.OutcomeNo)
	}
}

func TestResolveRejectsUnknownOutcome(t *testing.T) {
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, &fakeResolutionService{})

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/resolve",
		strings.NewReader(`{"outcome":"maybe"}`))
	req.Header.Set("X-Caller", testAdmin.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResolveNotClosedConflict(t *testing.T) {
	resolutions := &fakeResolutionService{resolveErr: domain.ErrMarketNotClosed}
	mux := newMux(&fakeMarketService{}, &fakeBetService{}, resolutions)

	req := httptest.NewRequest(http.MethodPost, "/api/markets/1/resolve",
		strings.NewReader(`{"outcome":"yes"}`))
	req.Header.Set("X-Caller", testAdmin.Hex())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}
