package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/oddslab/predictd/internal/domain"
	"github.com/oddslab/predictd/internal/ledger"
)

// AdminService manages the sub-admin registry.
type AdminService struct {
	ledger    *ledger.Ledger
	subAdmins domain.SubAdminStore
	bus       domain.SignalBus
	audit     domain.AuditStore
	logger    *slog.Logger
}

// NewAdminService creates an AdminService with all required dependencies.
func NewAdminService(
	l *ledger.Ledger,
	subAdmins domain.SubAdminStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		ledger:    l,
		subAdmins: subAdmins,
		bus:       bus,
		audit:     audit,
		logger:    logger,
	}
}

// AddSubAdmin grants sub-admin rights to target. Only the root admin may call
// it.
func (s *AdminService) AddSubAdmin(ctx context.Context, caller, target common.Address) error {
	if err := s.ledger.AddSubAdmin(caller, target); err != nil {
		return fmt.Errorf("admin_service: add sub-admin: %w", err)
	}

	if err := s.subAdmins.Add(ctx, target); err != nil {
		s.logger.ErrorContext(ctx, "admin_service: persist sub-admin failed",
			slog.String("target", target.Hex()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "sub_admin_added", map[string]any{
		"caller": caller.Hex(),
		"target": target.Hex(),
	}); err != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelAdmins, "sub_admin_added", map[string]string{
		"target": target.Hex(),
	})

	s.logger.InfoContext(ctx, "admin_service: sub-admin added",
		slog.String("target", target.Hex()),
	)
	return nil
}

// RemoveSubAdmin revokes sub-admin rights from target. Only the root admin
// may call it.
func (s *AdminService) RemoveSubAdmin(ctx context.Context, caller, target common.Address) error {
	if err := s.ledger.RemoveSubAdmin(caller, target); err != nil {
		return fmt.Errorf("admin_service: remove sub-admin: %w", err)
	}

	if err := s.subAdmins.Remove(ctx, target); err != nil {
		s.logger.ErrorContext(ctx, "admin_service: unpersist sub-admin failed",
			slog.String("target", target.Hex()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "sub_admin_removed", map[string]any{
		"caller": caller.Hex(),
		"target": target.Hex(),
	}); err != nil {
		s.logger.WarnContext(ctx, "admin_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	publishEvent(ctx, s.bus, s.logger, domain.ChannelAdmins, "sub_admin_removed", map[string]string{
		"target": target.Hex(),
	})

	s.logger.InfoContext(ctx, "admin_service: sub-admin removed",
		slog.String("target", target.Hex()),
	)
	return nil
}

// SubAdmins returns the current sub-admin set.
func (s *AdminService) SubAdmins(ctx context.Context) []common.Address {
	return s.ledger.SubAdmins()
}

// Admin returns the immutable root admin address.
func (s *AdminService) Admin() common.Address {
	return s.ledger.Admin()
}

// IsPrivileged reports whether addr is the admin or a sub-admin.
func (s *AdminService) IsPrivileged(addr common.Address) bool {
	return s.ledger.IsPrivileged(addr)
}
