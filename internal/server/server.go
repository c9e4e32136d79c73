// Package server assembles the HTTP + WebSocket API surface on top of the
// accounting services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/server/handler"
	"github.com/oddslab/predictd/internal/server/middleware"
	"github.com/oddslab/predictd/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	ReadTimeout time.Duration

	// RateLimit caps requests per client IP inside RateWindow. Zero disables
	// the limiter even when a RateLimiter is supplied.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Contract *handler.ContractHandler
	Markets  *handler.MarketHandler
	Bets     *handler.BetHandler
	Resolve  *handler.ResolveHandler
	Admins   *handler.AdminHandler
	Fees     *handler.FeeHandler
}

// Server is the headless HTTP + WebSocket API server for the engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, logging, CORS, auth) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Aggregate state snapshot.
	mux.HandleFunc("GET /api/contract", handlers.Contract.GetContractData)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/detail", handlers.Markets.GetMarketDetail)

	// Prediction endpoints.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/markets/{id}/predictions", handlers.Bets.ListPredictions)

	// Resolution endpoints.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Resolve.Resolve)
	mux.HandleFunc("GET /api/markets/{id}/payouts", handlers.Resolve.ListPayouts)

	// Admin registry endpoints.
	mux.HandleFunc("GET /api/admins", handlers.Admins.ListSubAdmins)
	mux.HandleFunc("POST /api/admins", handlers.Admins.AddSubAdmin)
	mux.HandleFunc("DELETE /api/admins/{address}", handlers.Admins.RemoveSubAdmin)

	// Fee endpoints.
	mux.HandleFunc("GET /api/fees", handlers.Fees.GetBalances)
	mux.HandleFunc("POST /api/fees/withdraw", handlers.Fees.WithdrawFees)
	mux.HandleFunc("GET /api/fees/withdrawals", handlers.Fees.ListWithdrawals)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  readTimeout,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
