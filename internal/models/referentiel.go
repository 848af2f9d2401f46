package models

// Referential tables feed the form selects. They are seeded at startup and
// read-only to the API.

// RefStructure lists the structures that can realise or collect an activity.
type RefStructure struct {
	Code        string  `gorm:"primaryKey;size:20" json:"code"`
	Structures  string  `gorm:"size:255;not null" json:"structures"`
	Abreviation *string `gorm:"size:50" json:"abreviation,omitempty"`
}

func (RefStructure) TableName() string { return "ref_structures" }

// RefItem is a coded label row shared by the remaining referential tables.
type RefItem struct {
	Code    string `gorm:"primaryKey;size:20" json:"code"`
	Libelle string `gorm:"size:255;not null" json:"libelle"`
}

type RefResultat struct{ RefItem }

func (RefResultat) TableName() string { return "ref_resultats" }

type RefIndicateur struct{ RefItem }

func (RefIndicateur) TableName() string { return "ref_indicateurs" }

type RefSourceVerif struct{ RefItem }

func (RefSourceVerif) TableName() string { return "ref_sources_verif" }

type RefProduit struct{ RefItem }

func (RefProduit) TableName() string { return "ref_produits" }

type RefSourceFinance struct{ RefItem }

func (RefSourceFinance) TableName() string { return "ref_sources_finance" }
