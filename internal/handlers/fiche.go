package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/httpx"
	"github.com/instat-sds/fiches-portal/internal/fiche"
	"github.com/instat-sds/fiches-portal/internal/models"
	"github.com/instat-sds/fiches-portal/internal/roles"
)

// FicheHandler serves fiche reads and forwards every mutation to the
// lifecycle engine. It never applies a transition itself.
type FicheHandler struct {
	engine *fiche.Engine
	roles  *roles.Store
}

func NewFicheHandler(engine *fiche.Engine, roleStore *roles.Store) *FicheHandler {
	return &FicheHandler{engine: engine, roles: roleStore}
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *fiche.ValidationError
	var rerr *fiche.RepositoryError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_error", map[string]string{
			"field":   verr.Field,
			"message": verr.Message,
		})
	case errors.Is(err, fiche.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, fiche.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, fiche.ErrInvalidState):
		// Stale state: the client should refresh and retry.
		httpx.JSONError(w, http.StatusConflict, "invalid_state", nil)
	case errors.As(err, &rerr):
		httpx.JSONError(w, http.StatusBadGateway, "repository_error", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// List returns the fiches visible to the caller's role. ?pending=1 narrows a
// validator's listing to the action queue.
func (h *FicheHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	role := h.roles.GetRole(r.Context(), uid)

	filter := fiche.Filter{PendingOnly: r.URL.Query().Get("pending") == "1"}
	fiches, err := h.engine.ListFor(r.Context(), uid, role, filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiches": fiches})
}

// ListPending is the validator queue: only fiches awaiting a decision.
func (h *FicheHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	role := h.roles.GetRole(r.Context(), uid)

	fiches, err := h.engine.ListFor(r.Context(), uid, role, fiche.Filter{PendingOnly: true})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiches": fiches})
}

// Create opens a new draft owned by the caller.
func (h *FicheHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var in fiche.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	f, err := h.engine.Create(r.Context(), uid, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

// View returns one fiche within the caller's role scope.
func (h *FicheHandler) View(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	role := h.roles.GetRole(r.Context(), uid)

	f, err := h.engine.Get(r.Context(), r.PathValue("id"), uid, role)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

// Update merges owner-editable fields into a draft.
func (h *FicheHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var in fiche.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	f, err := h.engine.Update(r.Context(), r.PathValue("id"), uid, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

// Delete removes a draft permanently.
func (h *FicheHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := h.engine.Delete(r.Context(), r.PathValue("id"), uid); err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// Submit transitions a draft to the pending state.
func (h *FicheHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	f, err := h.engine.Submit(r.Context(), r.PathValue("id"), uid)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}

type decisionRequest struct {
	Decision models.Decision `json:"decision"`
	Comment  string          `json:"comment"`
}

// Decide records a validation outcome on a pending fiche.
func (h *FicheHandler) Decide(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	role := h.roles.GetRole(r.Context(), uid)

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	f, err := h.engine.Decide(r.Context(), r.PathValue("id"), uid, role, req.Decision, req.Comment)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, f)
}
