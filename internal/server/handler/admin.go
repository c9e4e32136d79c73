package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// AdminService defines what the admin handler needs from the service layer.
type AdminService interface {
	AddSubAdmin(ctx context.Context, caller, target common.Address) error
	RemoveSubAdmin(ctx context.Context, caller, target common.Address) error
	SubAdmins(ctx context.Context) []common.Address
	Admin() common.Address
}

// AdminHandler serves the sub-admin registry endpoints.
type AdminHandler struct {
	admins AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admins AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admins: admins,
		logger: logger,
	}
}

type addSubAdminRequest struct {
	Address string `json:"address"`
}

// ListSubAdmins returns the primary admin and all registered sub-admins.
// GET /api/admins
func (h *AdminHandler) ListSubAdmins(w http.ResponseWriter, r *http.Request) {
	subAdmins := h.admins.SubAdmins(r.Context())
	if subAdmins == nil {
		subAdmins = []common.Address{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"admin":     h.admins.Admin(),
		"subAdmins": subAdmins,
	})
}

// AddSubAdmin registers a new sub-admin. Only the primary admin may call it.
// POST /api/admins
func (h *AdminHandler) AddSubAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	var req addSubAdminRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "address must be a hex address")
		return
	}

	target := common.HexToAddress(req.Address)
	if err := h.admins.AddSubAdmin(r.Context(), caller, target); err != nil {
		writeDomainError(w, err, "failed to add sub-admin")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"address": target.Hex()})
}

// RemoveSubAdmin removes a sub-admin from the registry.
// DELETE /api/admins/{address}
func (h *AdminHandler) RemoveSubAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid X-Caller header")
		return
	}

	raw := pathParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "address must be a hex address")
		return
	}

	if err := h.admins.RemoveSubAdmin(r.Context(), caller, common.HexToAddress(raw)); err != nil {
		writeDomainError(w, err, "failed to remove sub-admin")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
