// Package handler contains HTTP handlers for the Heirloom API.
//
// This file implements recipient admission and lifecycle endpoints. The
// list endpoint carries a plan projection so clients can render remaining
// capacity without a second request.
//
// Routes:
//   - POST   /accounts/{id}/recipients        -> Create
//   - GET    /accounts/{id}/recipients        -> List
//   - PUT    /accounts/{id}/recipients/{rid}  -> Update
//   - DELETE /accounts/{id}/recipients/{rid}  -> Delete
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/google/uuid"
)

// RecipientHandler handles recipient-related HTTP requests.
type RecipientHandler struct {
	recipientService service.RecipientService
	logger           *slog.Logger
}

// NewRecipientHandler creates a new RecipientHandler.
func NewRecipientHandler(recipientService service.RecipientService, logger *slog.Logger) *RecipientHandler {
	return &RecipientHandler{
		recipientService: recipientService,
		logger:           logger,
	}
}

// RegisterRoutes registers recipient routes on the provided mux.
func (h *RecipientHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /accounts/{id}/recipients", h.Create)
	mux.HandleFunc("GET /accounts/{id}/recipients", h.List)
	mux.HandleFunc("PUT /accounts/{id}/recipients/{rid}", h.Update)
	mux.HandleFunc("DELETE /accounts/{id}/recipients/{rid}", h.Delete)
}

// recipientPayload is the wire shape of a recipient.
type recipientPayload struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Relation  string    `json:"relation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func recipientToPayload(rec domain.Recipient) recipientPayload {
	return recipientPayload{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		Phone:     rec.Phone,
		Relation:  rec.Relation,
		CreatedAt: rec.CreatedAt,
	}
}

// planInfoPayload mirrors service.PlanInfo on the wire.
type planInfoPayload struct {
	CurrentPlan         string `json:"current_plan"`
	RecipientsLimit     int    `json:"recipients_limit"` // -1 means unlimited
	RemainingRecipients int    `json:"remaining_recipients"`
	CanAddRecipient     bool   `json:"can_add_recipient"`
}

// Create admits a new recipient against the account's plan ceiling.
func (h *RecipientHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Relation string `json:"relation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	recipient, err := h.recipientService.Admit(r.Context(), domain.CreateRecipientParams{
		AccountID: accountID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Relation:  req.Relation,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"data": recipientToPayload(*recipient)})
}

// List returns the account's recipients plus the plan projection.
func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list, err := h.recipientService.List(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	payload := make([]recipientPayload, 0, len(list.Recipients))
	for _, rec := range list.Recipients {
		payload = append(payload, recipientToPayload(rec))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data": payload,
		"plan_info": planInfoPayload{
			CurrentPlan:         list.PlanInfo.CurrentPlan,
			RecipientsLimit:     int(list.PlanInfo.RecipientsLimit),
			RemainingRecipients: list.PlanInfo.RemainingRecipients,
			CanAddRecipient:     list.PlanInfo.CanAddRecipient,
		},
	})
}

// Update edits a recipient's contact fields. Never touches any counter.
func (h *RecipientHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	recipientID, err := pathUUID(r, "rid")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Relation string `json:"relation"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	err = h.recipientService.Update(r.Context(), domain.UpdateRecipientParams{
		ID:        recipientID,
		AccountID: accountID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Relation:  req.Relation,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete releases a recipient, freeing one unit of the account's quota.
func (h *RecipientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	recipientID, err := pathUUID(r, "rid")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.recipientService.Release(r.Context(), recipientID, accountID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
