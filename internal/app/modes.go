package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/server"
	"github.com/oddslab/predictd/internal/server/handler"
	"github.com/oddslab/predictd/internal/server/ws"
	"github.com/oddslab/predictd/internal/service"
)

// ServeMode runs the full engine: the HTTP + WebSocket API over the ledger,
// with write-through persistence, caching, and settlement archival.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	marketSvc := service.NewMarketService(
		deps.Ledger, deps.MarketStore, deps.MarketCache, deps.SignalBus, deps.AuditStore, a.logger,
	)
	betSvc := service.NewBetService(
		deps.Ledger, deps.MarketStore, deps.PredictionStore, deps.MarketCache, deps.SignalBus, a.logger,
	)
	resolutionSvc := service.NewResolutionService(
		deps.Ledger, deps.LockManager, deps.MarketStore, deps.PayoutStore, deps.FeeStore,
		deps.MarketCache, deps.SignalBus, deps.AuditStore, deps.Archiver,
		a.logger, a.cfg.Server.LockTTL.Duration,
	)
	feeSvc := service.NewFeeService(
		deps.Ledger, deps.FeeStore, deps.SignalBus, deps.AuditStore, a.logger,
	)
	adminSvc := service.NewAdminService(
		deps.Ledger, deps.SubAdminStore, deps.SignalBus, deps.AuditStore, a.logger,
	)

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		ReadTimeout: a.cfg.Server.ReadTimeout.Duration,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Contract: handler.NewContractHandler(marketSvc, a.logger),
		Markets:  handler.NewMarketHandler(marketSvc, a.logger),
		Bets:     handler.NewBetHandler(betSvc, a.logger),
		Resolve:  handler.NewResolveHandler(resolutionSvc, a.logger),
		Admins:   handler.NewAdminHandler(adminSvc, a.logger),
		Fees:     handler.NewFeeHandler(feeSvc, a.logger),
	}, deps.RateLimiter, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// MonitorMode follows the durable event stream and logs engine activity. No
// HTTP surface is exposed and no state is mutated.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lastID := "0"
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			msgs, err := deps.SignalBus.StreamRead(ctx, domain.StreamEvents, lastID, 100)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.WarnContext(ctx, "monitor: stream read failed",
					slog.String("error", err.Error()),
				)
				continue
			}

			for _, msg := range msgs {
				a.logger.InfoContext(ctx, "monitor: event",
					slog.String("stream_id", msg.ID),
					slog.String("payload", string(msg.Payload)),
				)
				lastID = msg.ID
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}
	return nil
}
