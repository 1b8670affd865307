// Package handler contains HTTP handlers for the Heirloom API.
//
// This file implements vault lifecycle endpoints, including the finalize
// gate.
//
// Routes:
//   - POST /vaults                 -> Create
//   - GET  /vaults/{id}            -> Show
//   - POST /vaults/{id}/finalize   -> Finalize
//   - POST /vaults/{id}/archive    -> Archive
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/google/uuid"
)

// VaultHandler handles vault lifecycle requests.
type VaultHandler struct {
	vaultService service.VaultService
	logger       *slog.Logger
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(vaultService service.VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vaultService: vaultService,
		logger:       logger,
	}
}

// RegisterRoutes registers vault routes on the provided mux.
func (h *VaultHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /vaults", h.Create)
	mux.HandleFunc("GET /vaults/{id}", h.Show)
	mux.HandleFunc("POST /vaults/{id}/finalize", h.Finalize)
	mux.HandleFunc("POST /vaults/{id}/archive", h.Archive)
}

// vaultPayload is the wire shape of a vault. The password is write-only.
type vaultPayload struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       uuid.UUID  `json:"account_id"`
	Title           string     `json:"title"`
	Status          string     `json:"status"`
	DeliveryMessage string     `json:"delivery_message,omitempty"`
	DeliverAt       *time.Time `json:"deliver_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func vaultToPayload(v *domain.Vault) vaultPayload {
	return vaultPayload{
		ID:              v.ID,
		AccountID:       v.AccountID,
		Title:           v.Title,
		Status:          string(v.Status),
		DeliveryMessage: v.DeliveryMessage,
		DeliverAt:       v.DeliverAt,
		CreatedAt:       v.CreatedAt,
	}
}

// Create opens a draft vault for the account.
func (h *VaultHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID       uuid.UUID `json:"account_id"`
		Title           string    `json:"title"`
		Password        string    `json:"password"`
		DeliveryMessage string    `json:"delivery_message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vault, err := h.vaultService.Create(r.Context(), service.CreateVaultParams{
		AccountID:       req.AccountID,
		Title:           req.Title,
		Password:        req.Password,
		DeliveryMessage: req.DeliveryMessage,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"data": vaultToPayload(vault)})
}

// Show returns a single vault.
func (h *VaultHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	vault, err := h.vaultService.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": vaultToPayload(vault)})
}

// Finalize runs the subscription gate and seals the vault.
func (h *VaultHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req struct {
		DeliverAt *time.Time `json:"deliver_at"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	vault, err := h.vaultService.Finalize(r.Context(), id, req.DeliverAt)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": vaultToPayload(vault)})
}

// Archive moves a delivered vault to archived.
func (h *VaultHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.vaultService.Archive(r.Context(), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
