package models

import "time"

// Protein repräsentiert einen Eintrag aus dem HMDB-Protein-Export.
// Natürlicher Schlüssel ist die UniProt-ID. Ein Protein kann mit beliebig
// vielen Metaboliten verknüpft sein, auch mit keinem.
type Protein struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UniprotID string `json:"uniprot_id" gorm:"column:uniprot_id;uniqueIndex;not null"`
	Name      string `json:"name"`
	GeneName  string `json:"gene_name,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Protein) TableName() string {
	return "proteins"
}

// ProteinMutableColumns sind die beim Upsert überschreibbaren Spalten.
var ProteinMutableColumns = []string{"updated_at", "name", "gene_name"}

// ProteinMetabolite ist die m:n-Verknüpfung zwischen Proteinen und Metaboliten.
type ProteinMetabolite struct {
	ProteinID    uint `json:"protein_id" gorm:"primaryKey;autoIncrement:false"`
	MetaboliteID uint `json:"metabolite_id" gorm:"primaryKey;autoIncrement:false"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ProteinMetabolite) TableName() string {
	return "protein_metabolites"
}
