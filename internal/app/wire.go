package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/oddslab/predictd/internal/blob/s3"
	"github.com/oddslab/predictd/internal/cache/redis"
	"github.com/oddslab/predictd/internal/config"
	"github.com/oddslab/predictd/internal/crypto"
	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
	"github.com/oddslab/predictd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// The in-memory engine, rehydrated from Postgres at startup.
	Ledger *ledger.Ledger

	// Stores
	MarketStore     domain.MarketStore
	PredictionStore domain.PredictionStore
	PayoutStore     domain.PayoutStore
	FeeStore        domain.FeeStore
	SubAdminStore   domain.SubAdminStore
	AuditStore      domain.AuditStore

	// Caches
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.SettlementArchiver
}

// resolveAdmin determines the root admin principal: a plain configured
// address, or the address derived from the encrypted operator key.
func resolveAdmin(cfg *config.Config) (common.Address, error) {
	if cfg.Admin.Address != "" {
		if !common.IsHexAddress(cfg.Admin.Address) {
			return common.Address{}, fmt.Errorf("admin address %q is not a hex address", cfg.Admin.Address)
		}
		return common.HexToAddress(cfg.Admin.Address), nil
	}
	return crypto.AdminAddress(crypto.KeyConfig{
		EncryptedKeyPath: cfg.Admin.EncryptedKeyPath,
		KeyPassword:      cfg.Admin.KeyPassword,
	})
}

// Wire constructs all concrete dependency implementations from the given
// configuration, rehydrates the ledger from Postgres, and returns everything
// together with a cleanup function that should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	admin, err := resolveAdmin(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: resolve admin: %w", err)
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.PredictionStore = postgres.NewPredictionStore(pool)
	deps.PayoutStore = postgres.NewPayoutStore(pool)
	deps.FeeStore = postgres.NewFeeStore(pool)
	deps.SubAdminStore = postgres.NewSubAdminStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Ledger rehydration ---
	deps.Ledger = ledger.New(ledger.Config{
		Admin:      admin,
		FeeRateBps: cfg.Engine.FeeRateBps,
	})
	if err := rehydrate(ctx, deps, logger); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: rehydrate ledger: %w", err)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage ---
	s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: s3: %w", err)
	}
	closers = append(closers, func() { _ = s3Client.Close() })

	deps.BlobWriter = s3blob.NewWriter(s3Client)
	deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AuditStore)

	return deps, cleanup, nil
}

// rehydrate loads persisted state into the ledger. The store is the durable
// record; the ledger rebuilt from it is authoritative for all subsequent
// operations.
func rehydrate(ctx context.Context, deps *Dependencies, logger *slog.Logger) error {
	markets, err := deps.MarketStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	predictions, err := deps.PredictionStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load predictions: %w", err)
	}
	subAdmins, err := deps.SubAdminStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load sub-admins: %w", err)
	}
	fees, err := deps.FeeStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load fee balances: %w", err)
	}

	deps.Ledger.Restore(markets, predictions, subAdmins, fees)

	logger.InfoContext(ctx, "wire: ledger rehydrated",
		slog.Int("markets", len(markets)),
		slog.Int("predictions", len(predictions)),
		slog.Int("sub_admins", len(subAdmins)),
	)
	return nil
}
