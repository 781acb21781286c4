package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nebula-auto-parts/storefront/internal/service"
)

// AdminHandler serves the admin dashboard. Routes are mounted behind
// RequireAuth and RequireRole(admin).
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type adminUserRequest struct {
	profileRequest
	Role *string `json:"role"`
}

// HandleListUsers returns every account.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleStats returns {"products","orders","users"} counts.
//
// HTTP: GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleUpdateUser edits an account. A "password" field is ignored.
//
// HTTP: PUT /api/admin/user/{id}
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req adminUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.admin.UpdateUser(r.Context(), chi.URLParam(r, "id"), service.AdminUserUpdate{
		ProfileFields: req.fields(),
		Role:          req.Role,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteUser removes an account and its cart.
//
// HTTP: DELETE /api/admin/user/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
