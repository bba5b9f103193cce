// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/export"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/payment"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

// EventService is the event catalogue as used by the handlers.
type EventService interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListAllEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, in model.EventInput) (*model.Event, error)
	ArchiveEvent(ctx context.Context, id string) (*model.Event, error)
}

// RegistrationService is the registration workflow as used by the handlers.
type RegistrationService interface {
	PublicConfig() service.PublicConfig
	InitiateRegistration(ctx context.Context, caller *model.Identity, req model.RegisterRequest) (*model.Registration, error)
	PreparePayment(ctx context.Context, caller *model.Identity, registrationID string) (*model.PaymentIntentResponse, error)
	ConfirmPayment(ctx context.Context, caller *model.Identity, req model.ConfirmPaymentRequest) (*model.Registration, error)
	ConfirmFromWebhook(ctx context.Context, evt *payment.WebhookEvent) error
	ListMyRegistrations(ctx context.Context, caller *model.Identity) ([]model.Registration, error)

	ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	CreateRegistration(ctx context.Context, admin *model.Identity, req model.AdminRegistrationRequest) (*model.Registration, error)
	UpdateRegistration(ctx context.Context, admin *model.Identity, id string, patch model.RegistrationPatch) (*model.Registration, error)
	DeleteRegistration(ctx context.Context, admin *model.Identity, id string) error
	CancelRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error)
	RefundRegistration(ctx context.Context, admin *model.Identity, id string) (*model.Registration, error)
	ResendConfirmation(ctx context.Context, admin *model.Identity, id string) (*model.Notification, error)
	ListNotifications(ctx context.Context, status model.NotificationStatus) ([]model.Notification, error)
}

// UserService is account administration as used by the handlers.
type UserService interface {
	ListUsers(ctx context.Context, page, perPage int) ([]model.User, error)
	DeleteUser(ctx context.Context, admin *model.Identity, id string) error
}

// Exporter ships registrations to external storage.
type Exporter interface {
	Run(ctx context.Context, f model.RegistrationFilter) (*export.Result, error)
}

// WebhookParser verifies and decodes gateway webhooks.
type WebhookParser interface {
	Parse(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps workflow errors to HTTP responses. Unexpected
// errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrPaymentNotSucceeded):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, service.ErrStateConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable, please retry")
	case errors.Is(err, service.ErrNotificationFailed):
		writeError(w, http.StatusServiceUnavailable, "confirmation email could not be delivered")
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "feature not configured")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
