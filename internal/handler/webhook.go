package handler

import (
	"io"
	"log/slog"
	"net/http"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives signed payment gateway notifications.
type WebhookHandler struct {
	parser WebhookParser
	svc    RegistrationService
	logger *slog.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(parser WebhookParser, svc RegistrationService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, svc: svc, logger: logger}
}

// Stripe handles POST /api/webhooks/stripe
// A 5xx response makes the gateway redeliver the event later.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	evt, err := h.parser.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook rejected", "err", err)
		writeError(w, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	if err := h.svc.ConfirmFromWebhook(r.Context(), evt); err != nil {
		h.logger.ErrorContext(r.Context(), "webhook processing failed", "event_id", evt.ID, "type", evt.Type, "err", err)
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
