package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/auth"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// UserHandler serves account administration.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// List handles GET /api/admin/users?page=&per_page=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err1 := intQuery(r, "page")
	perPage, err2 := intQuery(r, "per_page")
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "page and per_page must be integers")
		return
	}

	users, err := h.svc.ListUsers(r.Context(), page, perPage)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Delete handles DELETE /api/admin/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intQuery(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
