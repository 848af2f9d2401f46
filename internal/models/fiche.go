package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Statut is the lifecycle stage of a fiche.
type Statut string

const (
	StatutBrouillon Statut = "brouillon"
	StatutSoumis    Statut = "soumis"
)

// Decision is the validation outcome, orthogonal to the lifecycle stage.
// The empty value means no decision has been taken yet.
type Decision string

const (
	DecisionNone   Decision = ""
	DecisionValide Decision = "valide"
	DecisionRejete Decision = "rejete"
)

// Valid reports whether d is an outcome a validator may set.
func (d Decision) Valid() bool {
	return d == DecisionValide || d == DecisionRejete
}

// MarshalJSON serializes the empty decision as null; API consumers read
// statut_validation as a nullable field.
func (d Decision) MarshalJSON() ([]byte, error) {
	if d == DecisionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON accepts null as the empty decision.
func (d *Decision) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = DecisionNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = Decision(s)
	return nil
}

// Fiche is a single structured submission record (survey/activity report).
// Implements the Ownable interface for ownership-based authorization.
type Fiche struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this fiche; immutable after creation.
	UserID string `gorm:"type:uuid;index;not null" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`

	Titre       string  `gorm:"size:255;not null" json:"titre"`
	Annee       *int    `json:"annee"`
	NumeroFiche *string `gorm:"size:50" json:"numero_fiche"`

	// Lifecycle stage and validation outcome are kept on two separate
	// columns; statut_validation is empty until a validator decides.
	Statut   Statut   `gorm:"size:20;not null;default:'brouillon'" json:"statut"`
	Decision Decision `gorm:"column:statut_validation;size:20;not null;default:''" json:"statut_validation"`

	ValidationComment *string    `gorm:"size:1000" json:"validation_comment"`
	ValidatedAt       *time.Time `json:"validated_at"`
	ValidatedBy       *string    `gorm:"type:uuid" json:"validated_by"`
	SubmittedAt       *time.Time `json:"submitted_at"`

	// Data holds the survey sections. Only the identification section and
	// the envergure block are interpreted here; the rest is opaque.
	Data datatypes.JSON `json:"data"`
}

// BeforeCreate assigns a fresh UUID when none was provided.
func (f *Fiche) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// GetUserID implements the Ownable interface for authorization.
func (f *Fiche) GetUserID() string {
	return f.UserID
}

// IsDraft returns true while the fiche is editable by its owner.
func (f *Fiche) IsDraft() bool {
	return f.Statut == StatutBrouillon
}

// IsPending returns true when the fiche awaits a validation decision.
func (f *Fiche) IsPending() bool {
	return f.Statut == StatutSoumis && f.Decision == DecisionNone
}

// IsDecided returns true once a validator has approved or rejected the fiche.
func (f *Fiche) IsDecided() bool {
	return f.Decision.Valid()
}

// Document is the structure of the fiche data payload. Sections 3 to 5 are
// carried verbatim; the lifecycle only interprets section 1 and the envergure
// block of section 2 during submission.
type Document struct {
	Section1 Identification   `json:"section1"`
	Section2 Caracteristiques `json:"section2"`
	Section3 json.RawMessage  `json:"section3,omitempty"`
	Section4 json.RawMessage  `json:"section4,omitempty"`
	Section5 json.RawMessage  `json:"section5,omitempty"`
}

// Identification holds the fields checked by the submission-strict rules.
type Identification struct {
	Region                   string `json:"region"`
	Cercle                   string `json:"cercle"`
	StructureRealisationCode string `json:"structure_realisation_code,omitempty"`
	StructureCollecteCode    string `json:"structure_collecte_code,omitempty"`
	Responsable              string `json:"responsable"`
	Annee                    *int   `json:"annee"`
	NumeroFiche              string `json:"numero_fiche"`
	IntituleActivite         string `json:"intitule_activite"`
	ResultatCode             string `json:"resultat_code,omitempty"`
}

// Caracteristiques carries section 2; only envergure is interpreted.
type Caracteristiques struct {
	DonneesDesag     string          `json:"donnees_desag,omitempty"`
	Desagregation    json.RawMessage `json:"desagregation,omitempty"`
	IndicateursCodes []string        `json:"indicateurs_codes,omitempty"`
	Envergure        Envergure       `json:"envergure"`
	Programmee       string          `json:"programmee,omitempty"`
}

// Envergure code "7" stands for "autre" and requires a free-text precision.
type Envergure struct {
	Code  string `json:"code,omitempty"`
	Autre string `json:"autre,omitempty"`
}

// EnvergureAutreCode is the envergure option that requires a precision.
const EnvergureAutreCode = "7"

// ParseDocument decodes the stored data payload. A nil/empty payload decodes
// to the zero document so submission validation reports missing fields.
func (f *Fiche) ParseDocument() (*Document, error) {
	doc := &Document{}
	if len(f.Data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(f.Data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
