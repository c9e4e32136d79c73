// Package service wires the accounting engine to persistence, caching,
// eventing, and archival. The in-memory ledger is the source of truth; the
// stores are a write-through mirror, so persistence failures after a ledger
// commit are logged and surfaced to operators rather than rolled back.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oddslab/predictd/internal/domain"
)

// publishEvent fans an event out on its pub/sub channel and mirrors it onto
// the durable event stream. Failures are logged, never propagated; eventing
// is best-effort by contract.
func publishEvent(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel, eventType string, payload any) {
	data, err := json.Marshal(domain.Event{Type: eventType, Payload: payload})
	if err != nil {
		logger.WarnContext(ctx, "service: marshal event failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := bus.Publish(ctx, channel, data); err != nil {
		logger.WarnContext(ctx, "service: publish event failed",
			slog.String("event", eventType),
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, domain.StreamEvents, data); err != nil {
		logger.WarnContext(ctx, "service: stream append failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
