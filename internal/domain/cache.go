package domain

import (
	"context"
	"io"
	"time"
)

// MarketCache caches market snapshots for the read surface.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	Get(ctx context.Context, id uint64) (Market, error)
	Invalidate(ctx context.Context, id uint64) error
}

// LockManager provides distributed mutual exclusion. Resolution acquires a
// per-market lock so that concurrent resolve attempts across processes yield
// exactly one winner.
type LockManager interface {
	// Acquire obtains the lock for key, returning an unlock function.
	// Returns ErrLockHeld when another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces per-key request quotas for the HTTP surface.
type RateLimiter interface {
	// Allow reports whether a request for key fits inside the sliding
	// window. Allowed requests are counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage is a single durable bus message.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus distributes engine events: pub/sub for ephemeral fan-out and
// streams for durable, ordered delivery.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SettlementArchiver writes the settlement report of a resolved market to
// cold storage.
type SettlementArchiver interface {
	ArchiveSettlement(ctx context.Context, market Market, settlement Settlement) error
}
