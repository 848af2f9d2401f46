// Package fiche implements the lifecycle of a fiche: the states a record can
// hold, who may transition it, and the guards enforced at each transition.
//
// States on two axes: statut (brouillon/soumis) and decision (none, valide,
// rejete). A draft is editable by its owner; a submitted fiche with no
// decision is pending; valide/rejete are terminal on the validation axis.
// Every transition is a conditional update against the expected prior state,
// so a concurrent decision fails with ErrInvalidState instead of silently
// overwriting.
package fiche

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/internal/models"
)

// Engine validates and applies every state transition on a fiche.
// It takes the repository handle by injection; no package-level state.
type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Input carries the owner-editable fields of a fiche. Draft saves may leave
// the strict fields empty; submission may not.
type Input struct {
	Titre       string           `json:"titre"`
	Annee       *int             `json:"annee"`
	NumeroFiche string           `json:"numero_fiche"`
	Data        *models.Document `json:"data"`
}

// Filter narrows role-scoped listings.
type Filter struct {
	// PendingOnly restricts the validator scope to fiches awaiting a
	// decision (the action queue).
	PendingOnly bool
}

// Stats are the dashboard counters over the caller's role scope.
type Stats struct {
	Total      int64 `json:"total"`
	Brouillons int64 `json:"brouillons"`
	EnAttente  int64 `json:"en_attente"`
	Validees   int64 `json:"validees"`
	Rejetees   int64 `json:"rejetees"`
}

// Create produces a new draft owned by ownerID. The only draft-time rule is
// a non-empty titre; everything else may be completed later.
func (e *Engine) Create(ctx context.Context, ownerID string, in Input) (*models.Fiche, error) {
	if strings.TrimSpace(in.Titre) == "" {
		return nil, invalid("titre", "Le titre est obligatoire")
	}

	f := &models.Fiche{
		UserID:   ownerID,
		Titre:    strings.TrimSpace(in.Titre),
		Annee:    in.Annee,
		Statut:   models.StatutBrouillon,
		Decision: models.DecisionNone,
	}
	if n := strings.TrimSpace(in.NumeroFiche); n != "" {
		f.NumeroFiche = &n
	}
	data, err := marshalDocument(in.Data)
	if err != nil {
		return nil, invalid("data", "Document de données invalide")
	}
	f.Data = data

	if err := e.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, repoErr("create", err)
	}
	return f, nil
}

// Get returns one fiche within the caller's role scope: owners see their own,
// validators see submitted fiches, admins see all.
func (e *Engine) Get(ctx context.Context, ficheID, callerID string, role models.Role) (*models.Fiche, error) {
	f, err := e.load(ctx, ficheID)
	if err != nil {
		return nil, err
	}
	switch {
	case f.UserID == callerID:
	case role == models.RoleAdmin:
	case role == models.RoleValidateur && f.Statut == models.StatutSoumis:
	default:
		return nil, ErrForbidden
	}
	return f, nil
}

// Submit transitions an owner's draft to the pending state. All
// submission-strict rules must pass; the fiche is not submitted if any rule
// fails.
func (e *Engine) Submit(ctx context.Context, ficheID, callerID string) (*models.Fiche, error) {
	f, err := e.load(ctx, ficheID)
	if err != nil {
		return nil, err
	}
	if f.UserID != callerID {
		return nil, ErrForbidden
	}
	if !f.IsDraft() {
		return nil, ErrInvalidState
	}
	if verr := validateForSubmit(f); verr != nil {
		return nil, verr
	}

	now := time.Now().UTC()
	res := e.db.WithContext(ctx).Model(&models.Fiche{}).
		Where("id = ? AND statut = ?", f.ID, models.StatutBrouillon).
		Updates(map[string]any{
			"statut":            models.StatutSoumis,
			"statut_validation": models.DecisionNone,
			"submitted_at":      now,
		})
	if res.Error != nil {
		return nil, repoErr("submit", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race against a concurrent submit.
		return nil, ErrInvalidState
	}
	return e.load(ctx, ficheID)
}

// Decide records a validator's outcome on a pending fiche. Rejections require
// a non-empty comment. Deciding an already-decided fiche fails with
// ErrInvalidState so the caller re-reads the authoritative state.
func (e *Engine) Decide(ctx context.Context, ficheID, validatorID string, role models.Role, decision models.Decision, comment string) (*models.Fiche, error) {
	if !role.CanDecide() {
		return nil, ErrForbidden
	}
	if !decision.Valid() {
		return nil, invalid("decision", "Décision invalide")
	}
	comment = strings.TrimSpace(comment)
	if decision == models.DecisionRejete && comment == "" {
		return nil, invalid("validation_comment", "Commentaire obligatoire en cas de rejet")
	}

	f, err := e.load(ctx, ficheID)
	if err != nil {
		return nil, err
	}
	if !f.IsPending() {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"statut_validation":  decision,
		"validation_comment": nil,
		"validated_at":       now,
		"validated_by":       validatorID,
	}
	if decision == models.DecisionRejete {
		updates["validation_comment"] = comment
	}
	res := e.db.WithContext(ctx).Model(&models.Fiche{}).
		Where("id = ? AND statut = ? AND statut_validation = ?",
			f.ID, models.StatutSoumis, models.DecisionNone).
		Updates(updates)
	if res.Error != nil {
		return nil, repoErr("decide", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another validator decided first.
		return nil, ErrInvalidState
	}
	return e.load(ctx, ficheID)
}

// Update merges owner-editable fields into a draft. Submitted fiches are no
// longer editable by their owner.
func (e *Engine) Update(ctx context.Context, ficheID, callerID string, in Input) (*models.Fiche, error) {
	f, err := e.load(ctx, ficheID)
	if err != nil {
		return nil, err
	}
	if f.UserID != callerID {
		return nil, ErrForbidden
	}
	if !f.IsDraft() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Titre) == "" {
		return nil, invalid("titre", "Le titre est obligatoire")
	}

	updates := map[string]any{
		"titre": strings.TrimSpace(in.Titre),
		"annee": in.Annee,
	}
	if n := strings.TrimSpace(in.NumeroFiche); n != "" {
		updates["numero_fiche"] = n
	} else {
		updates["numero_fiche"] = nil
	}
	if in.Data != nil {
		data, err := marshalDocument(in.Data)
		if err != nil {
			return nil, invalid("data", "Document de données invalide")
		}
		updates["data"] = data
	}

	res := e.db.WithContext(ctx).Model(&models.Fiche{}).
		Where("id = ? AND statut = ?", f.ID, models.StatutBrouillon).
		Updates(updates)
	if res.Error != nil {
		return nil, repoErr("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrForbidden
	}
	return e.load(ctx, ficheID)
}

// Delete removes a draft permanently. Only the owner may delete, and only
// while the fiche has not been submitted.
func (e *Engine) Delete(ctx context.Context, ficheID, callerID string) error {
	f, err := e.load(ctx, ficheID)
	if err != nil {
		return err
	}
	if f.UserID != callerID {
		return ErrForbidden
	}
	if !f.IsDraft() {
		return ErrForbidden
	}
	res := e.db.WithContext(ctx).
		Where("id = ? AND statut = ?", f.ID, models.StatutBrouillon).
		Delete(&models.Fiche{})
	if res.Error != nil {
		return repoErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrForbidden
	}
	return nil
}

// ListFor returns the fiches visible to the caller: agents see their own,
// validators see submitted fiches (optionally only pending ones), admins see
// everything. Ordered newest first.
func (e *Engine) ListFor(ctx context.Context, callerID string, role models.Role, filter Filter) ([]models.Fiche, error) {
	q := e.scope(ctx, callerID, role)
	if role == models.RoleValidateur || role == models.RoleAdmin {
		if filter.PendingOnly {
			q = q.Where("statut = ? AND statut_validation = ?",
				models.StatutSoumis, models.DecisionNone)
		}
	}

	var fiches []models.Fiche
	if err := q.Order("created_at DESC").Find(&fiches).Error; err != nil {
		return nil, repoErr("list", err)
	}
	return fiches, nil
}

// Stats computes the dashboard counters over the caller's role scope.
func (e *Engine) Stats(ctx context.Context, callerID string, role models.Role) (Stats, error) {
	var s Stats
	type countRow struct {
		Statut   models.Statut
		Decision models.Decision `gorm:"column:statut_validation"`
	}
	var rows []countRow
	if err := e.scope(ctx, callerID, role).
		Select("statut", "statut_validation").Find(&rows).Error; err != nil {
		return s, repoErr("stats", err)
	}
	for _, r := range rows {
		s.Total++
		switch {
		case r.Decision == models.DecisionValide:
			s.Validees++
		case r.Decision == models.DecisionRejete:
			s.Rejetees++
		case r.Statut == models.StatutBrouillon:
			s.Brouillons++
		case r.Statut == models.StatutSoumis:
			s.EnAttente++
		}
	}
	return s, nil
}

func (e *Engine) scope(ctx context.Context, callerID string, role models.Role) *gorm.DB {
	q := e.db.WithContext(ctx).Model(&models.Fiche{})
	switch role {
	case models.RoleAdmin:
		return q
	case models.RoleValidateur:
		return q.Where("statut = ?", models.StatutSoumis)
	default:
		return q.Where("user_id = ?", callerID)
	}
}

func (e *Engine) load(ctx context.Context, ficheID string) (*models.Fiche, error) {
	var f models.Fiche
	err := e.db.WithContext(ctx).First(&f, "id = ?", ficheID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, repoErr("load", err)
	}
	return &f, nil
}

func marshalDocument(doc *models.Document) (datatypes.JSON, error) {
	if doc == nil {
		return nil, nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// validateForSubmit enforces the submission-strict rules in form order and
// fails fast with the first violation.
func validateForSubmit(f *models.Fiche) *ValidationError {
	doc, err := f.ParseDocument()
	if err != nil {
		return invalid("data", "Document de données invalide")
	}
	id := doc.Section1

	if strings.TrimSpace(id.Region) == "" {
		return invalid("region", "Région obligatoire")
	}
	if strings.TrimSpace(id.Cercle) == "" {
		return invalid("cercle", "Cercle obligatoire")
	}
	if id.StructureRealisationCode == "" {
		return invalid("structure_realisation_code", "Structure (réalisation) obligatoire")
	}
	if id.StructureCollecteCode == "" {
		return invalid("structure_collecte_code", "Structure (collecte SDS) obligatoire")
	}
	if strings.TrimSpace(id.Responsable) == "" {
		return invalid("responsable", "Nom du responsable obligatoire")
	}
	if annee(f, doc) == nil {
		return invalid("annee", "Année invalide")
	}
	if numeroFiche(f, doc) == "" {
		return invalid("numero_fiche", "Numéro de fiche obligatoire")
	}
	if strings.TrimSpace(id.IntituleActivite) == "" {
		return invalid("intitule_activite", "Intitulé de l'activité obligatoire")
	}
	if id.ResultatCode == "" {
		return invalid("resultat_code", "Chaîne de résultats (code) obligatoire")
	}
	env := doc.Section2.Envergure
	if env.Code == "" {
		return invalid("envergure", "Envergure obligatoire")
	}
	if env.Code == models.EnvergureAutreCode && strings.TrimSpace(env.Autre) == "" {
		return invalid("envergure_autre", "Précise 'Autre envergure'")
	}
	return nil
}

// annee prefers the fiche column, falling back to the identification section.
func annee(f *models.Fiche, doc *models.Document) *int {
	if f.Annee != nil && *f.Annee != 0 {
		return f.Annee
	}
	if doc.Section1.Annee != nil && *doc.Section1.Annee != 0 {
		return doc.Section1.Annee
	}
	return nil
}

// numeroFiche prefers the fiche column, falling back to the identification
// section.
func numeroFiche(f *models.Fiche, doc *models.Document) string {
	if f.NumeroFiche != nil && strings.TrimSpace(*f.NumeroFiche) != "" {
		return strings.TrimSpace(*f.NumeroFiche)
	}
	return strings.TrimSpace(doc.Section1.NumeroFiche)
}
