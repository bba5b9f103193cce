package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// EventHandler serves the public event catalogue and admin event management.
type EventHandler struct {
	svc    EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ListEvents handles GET /api/events
// Returns live events ordered by start time.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// AdminListEvents handles GET /api/admin/events
// Archived events are included.
func (h *EventHandler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListAllEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST /api/admin/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PATCH /api/admin/events/{id}
// Only the fields present in the body change.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ArchiveEvent handles DELETE /api/admin/events/{id}
// Events are archived, never removed, so their registrations survive.
func (h *EventHandler) ArchiveEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.ArchiveEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}
