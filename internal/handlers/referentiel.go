package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/httpx"
	"github.com/instat-sds/fiches-portal/internal/models"
)

// ReferentielHandler serves the coded label tables the form selects are built
// from. Read-only; ordered by code.
type ReferentielHandler struct {
	db *gorm.DB
}

func NewReferentielHandler(db *gorm.DB) *ReferentielHandler {
	return &ReferentielHandler{db: db}
}

func (h *ReferentielHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		structures     []models.RefStructure
		resultats      []models.RefResultat
		indicateurs    []models.RefIndicateur
		sourcesVerif   []models.RefSourceVerif
		produits       []models.RefProduit
		sourcesFinance []models.RefSourceFinance
	)
	queries := []error{
		h.db.WithContext(ctx).Order("code").Find(&structures).Error,
		h.db.WithContext(ctx).Order("code").Find(&resultats).Error,
		h.db.WithContext(ctx).Order("code").Find(&indicateurs).Error,
		h.db.WithContext(ctx).Order("code").Find(&sourcesVerif).Error,
		h.db.WithContext(ctx).Order("code").Find(&produits).Error,
		h.db.WithContext(ctx).Order("code").Find(&sourcesFinance).Error,
	}
	for _, err := range queries {
		if err != nil {
			httpx.JSONError(w, http.StatusBadGateway, "repository_error", nil)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"structures":      structures,
		"resultats":       resultats,
		"indicateurs":     indicateurs,
		"sources_verif":   sourcesVerif,
		"produits":        produits,
		"sources_finance": sourcesFinance,
	})
}
