// Package handler contains HTTP handlers for the Heirloom API.
//
// This file serves the plan catalog.
//
// Routes:
//   - GET /plans       -> List
//   - GET /plans/{id}  -> Show
package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlanHandler handles plan catalog requests.
type PlanHandler struct {
	planService service.PlanService
	logger      *slog.Logger
	titleCaser  cases.Caser
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		logger:      logger,
		titleCaser:  cases.Title(language.English),
	}
}

// RegisterRoutes registers plan routes on the provided mux.
func (h *PlanHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /plans", h.List)
	mux.HandleFunc("GET /plans/{id}", h.Show)
}

// planPayload is the wire shape of a plan.
type planPayload struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	PriceCents      int64  `json:"price_cents"`
	RecipientsLimit int    `json:"recipients_limit"` // -1 means unlimited
	Unlimited       bool   `json:"unlimited"`
	MostPopular     bool   `json:"most_popular"`
}

func (h *PlanHandler) toPayload(p domain.Plan) planPayload {
	title := p.Title
	if title == "" {
		title = h.titleCaser.String(p.ID)
	}
	return planPayload{
		ID:              p.ID,
		Title:           title,
		PriceCents:      p.PriceCents,
		RecipientsLimit: int(p.RecipientsLimit),
		Unlimited:       p.RecipientsLimit.IsUnlimited(),
		MostPopular:     p.MostPopular,
	}
}

// List returns all registered plans, cheapest first.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.planService.List(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	payload := make([]planPayload, 0, len(plans))
	for _, p := range plans {
		payload = append(payload, h.toPayload(p))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": payload})
}

// Show returns a single plan.
func (h *PlanHandler) Show(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"data": h.toPayload(*plan)})
}
