package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/auth"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/service"
)

// RegistrationHandler serves the checkout workflow and admin registration
// management.
type RegistrationHandler struct {
	svc      RegistrationService
	exporter Exporter
	logger   *slog.Logger
}

// NewRegistrationHandler constructs a RegistrationHandler. exporter may be
// nil when no export destination is configured.
func NewRegistrationHandler(svc RegistrationService, exporter Exporter, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, exporter: exporter, logger: logger}
}

// ─── Checkout ─────────────────────────────────────────────────────────────────

// Config handles GET /api/config
func (h *RegistrationHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.PublicConfig())
}

// Register handles POST /api/register-event
// Creates a pending registration for the signed-in caller.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.InitiateRegistration(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// CreatePaymentIntent handles POST /api/create-payment-intent
func (h *RegistrationHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.PreparePayment(r.Context(), auth.FromContext(r.Context()), req.RegistrationID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConfirmPayment handles POST /api/confirm-payment
// The gateway is asked for the intent status; the browser's word is not
// trusted.
func (h *RegistrationHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.ConfirmPayment(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ListMine handles GET /api/registrations
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListMyRegistrations(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

func filterFromQuery(r *http.Request) model.RegistrationFilter {
	q := r.URL.Query()
	return model.RegistrationFilter{
		EventID: q.Get("event_id"),
		UserID:  q.Get("user_id"),
		Status:  model.PaymentStatus(q.Get("status")),
	}
}

// AdminList handles GET /api/admin/registrations?event_id=&status=&user_id=
func (h *RegistrationHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), filterFromQuery(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// AdminGet handles GET /api/admin/registrations/{id}
func (h *RegistrationHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.GetRegistration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// AdminCreate handles POST /api/admin/registrations
func (h *RegistrationHandler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req model.AdminRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.CreateRegistration(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// AdminUpdate handles PATCH /api/admin/registrations/{id}
func (h *RegistrationHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.RegistrationPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.UpdateRegistration(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// AdminDelete handles DELETE /api/admin/registrations/{id}
func (h *RegistrationHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRegistration(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminCancel handles POST /api/admin/registrations/{id}/cancel
// Paid registrations are refunded first.
func (h *RegistrationHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.CancelRegistration(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// AdminRefund handles POST /api/admin/registrations/{id}/refund
func (h *RegistrationHandler) AdminRefund(w http.ResponseWriter, r *http.Request) {
	reg, err := h.svc.RefundRegistration(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// AdminResend handles POST /api/admin/registrations/{id}/resend-confirmation
func (h *RegistrationHandler) AdminResend(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ResendConfirmation(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// AdminExport handles POST /api/admin/registrations/export
// Accepts the same filters as AdminList.
func (h *RegistrationHandler) AdminExport(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export destination not configured")
		return
	}
	f := filterFromQuery(r)
	if err := service.ValidateFilter(f); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	res, err := h.exporter.Run(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// AdminNotifications handles GET /api/admin/notifications?status=
func (h *RegistrationHandler) AdminNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNotifications(r.Context(), model.NotificationStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}
