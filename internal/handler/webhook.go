// Package handler contains HTTP handlers for the Heirloom API.
//
// This file implements the Stripe webhook handler for processing billing
// events. The webhook is the only write path for subscription state; the
// finalize gate reads whatever state the last event left behind.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/heirloom/internal/billing"
	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing        billing.Service
	accountService service.AccountService
	logger         *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, accountService service.AccountService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:        billingService,
		accountService: accountService,
		logger:         logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are PUBLIC — no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		h.handleSubscriptionEvent(event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleSubscriptionEvent(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return
	}

	status := subscriptionStatusFromStripe(sub.Status)

	var expiresAt *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		expiresAt = &t
	}

	if err := h.accountService.SyncSubscription(webhookCtx(), sub.Customer.ID, sub.ID, status, expiresAt); err != nil {
		h.logger.Error("failed to sync subscription", "error", err, "customer_id", sub.Customer.ID)
		return
	}

	h.logger.Info("subscription event processed",
		"customer_id", sub.Customer.ID, "subscription_id", sub.ID, "status", status)
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	if err := h.accountService.SyncSubscription(webhookCtx(), sub.Customer.ID, "", domain.SubscriptionStatusInactive, nil); err != nil {
		h.logger.Error("failed to deactivate subscription", "error", err, "customer_id", sub.Customer.ID)
		return
	}

	h.logger.Info("subscription deleted", "customer_id", sub.Customer.ID, "subscription_id", sub.ID)
}

func (h *WebhookHandler) handlePaymentFailed(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment failed event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	subscriptionID := ""
	if invoice.Subscription != nil {
		subscriptionID = invoice.Subscription.ID
	}

	if err := h.accountService.SyncSubscription(webhookCtx(), invoice.Customer.ID, subscriptionID, domain.SubscriptionStatusExpired, nil); err != nil {
		h.logger.Error("failed to expire subscription on payment failure", "error", err, "customer_id", invoice.Customer.ID)
		return
	}

	h.logger.Warn("payment failed", "customer_id", invoice.Customer.ID)
}

// subscriptionStatusFromStripe collapses Stripe's subscription states onto
// the three the finalize gate distinguishes.
func subscriptionStatusFromStripe(s stripe.SubscriptionStatus) domain.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return domain.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return domain.SubscriptionStatusExpired
	default:
		return domain.SubscriptionStatusInactive
	}
}

// webhookCtx returns a background context for webhook processing.
// Webhooks are async events and don't have a user session context.
func webhookCtx() context.Context {
	return context.Background()
}
