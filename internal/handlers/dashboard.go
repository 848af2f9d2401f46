package handlers

import (
	"net/http"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/httpx"
	"github.com/instat-sds/fiches-portal/internal/fiche"
	"github.com/instat-sds/fiches-portal/internal/roles"
)

// DashboardHandler serves the KPI counters the landing view renders as cards
// (total, brouillons, en attente, validées, rejetées) over the caller's role
// scope.
type DashboardHandler struct {
	engine *fiche.Engine
	roles  *roles.Store
}

func NewDashboardHandler(engine *fiche.Engine, roleStore *roles.Store) *DashboardHandler {
	return &DashboardHandler{engine: engine, roles: roleStore}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	role := h.roles.GetRole(r.Context(), uid)

	stats, err := h.engine.Stats(r.Context(), uid, role)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":  role,
		"stats": stats,
	})
}
