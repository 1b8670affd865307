// Package handler contains HTTP handlers for the Heirloom API.
//
// This file implements account registration and plan switching.
//
// Routes:
//   - POST /accounts            -> Create
//   - GET  /accounts/{id}       -> Show
//   - PUT  /accounts/{id}/plan  -> SwitchPlan
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/google/uuid"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// RegisterRoutes registers account routes on the provided mux.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /accounts", h.Create)
	mux.HandleFunc("GET /accounts/{id}", h.Show)
	mux.HandleFunc("PUT /accounts/{id}/plan", h.SwitchPlan)
}

// accountPayload is the wire shape of an account.
type accountPayload struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name,omitempty"`
	PlanID                string     `json:"plan_id"`
	SubscriptionStatus    string     `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func accountToPayload(a *domain.Account) accountPayload {
	return accountPayload{
		ID:                    a.ID,
		Email:                 a.Email,
		Name:                  a.Name,
		PlanID:                a.PlanID,
		SubscriptionStatus:    string(a.SubscriptionStatus),
		SubscriptionExpiresAt: a.SubscriptionExpiresAt,
		CreatedAt:             a.CreatedAt,
	}
}

// Create registers a new account on the given plan.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Name   string `json:"name"`
		PlanID string `json:"plan_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	account, err := h.accountService.Create(r.Context(), req.Email, req.Name, req.PlanID)
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"data": accountToPayload(account)})
}

// Show returns a single account.
func (h *AccountHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	account, err := h.accountService.Get(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": accountToPayload(account)})
}

// SwitchPlan moves the account to another plan. An over-ceiling recipient
// count is kept; admission simply stays closed until it drops again.
func (h *AccountHandler) SwitchPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.accountService.SwitchPlan(r.Context(), id, req.PlanID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
