package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/httpx"
	"github.com/instat-sds/fiches-portal/internal/models"
	"github.com/instat-sds/fiches-portal/internal/roles"
)

// AdminUserHandler lets admins list accounts and assign roles.
type AdminUserHandler struct {
	roles *roles.Store
}

func NewAdminUserHandler(roleStore *roles.Store) *AdminUserHandler {
	return &AdminUserHandler{roles: roleStore}
}

// List returns every user profile, newest first.
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	profiles, err := h.roles.ListProfiles(r.Context(), uid)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": profiles})
}

type roleRequest struct {
	Role models.Role `json:"role"`
}

// UpdateRole assigns a role to the user named in the path.
func (h *AdminUserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	profile, err := h.roles.SetRole(r.Context(), uid, r.PathValue("id"), req.Role)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roles.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "unauthorized", nil)
	case errors.Is(err, roles.ErrUnknownUser):
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
	case errors.Is(err, roles.ErrInvalidRole):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_role", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
