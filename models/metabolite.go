package models

import (
	"time"

	"gorm.io/datatypes"
)

// Metabolite repräsentiert einen Eintrag aus dem HMDB-Metabolit-Export.
// Der natürliche Schlüssel ist die HMDB-Accession; die numerische ID wird
// von allen abhängigen Tabellen referenziert.
type Metabolite struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	HMDBID string `json:"hmdb_id" gorm:"column:hmdb_id;uniqueIndex;not null"`
	Name   string `json:"name" gorm:"index"`

	ChemicalFormula string `json:"chemical_formula,omitempty"`
	Status          string `json:"status,omitempty"`

	// Molekulargewichte bleiben nil, wenn der Export keinen parsebaren Wert liefert.
	AvgMolecularWeight  *float64 `json:"avg_molecular_weight,omitempty" gorm:"column:molecular_weight_avg"`
	MonoMolecularWeight *float64 `json:"mono_molecular_weight,omitempty" gorm:"column:molecular_weight_monoisotopic"`

	IUPACName string `json:"iupac_name,omitempty" gorm:"column:iupac_name"`
	SMILES    string `json:"smiles,omitempty" gorm:"column:smiles"`
	InChI     string `json:"inchi,omitempty" gorm:"column:inchi"`
	InChIKey  string `json:"inchikey,omitempty" gorm:"column:inchikey"`

	TaxonomyKingdom      string `json:"taxonomy_kingdom,omitempty"`
	TaxonomySuperclass   string `json:"taxonomy_superclass,omitempty"`
	TaxonomyClass        string `json:"taxonomy_class,omitempty"`
	TaxonomySubclass     string `json:"taxonomy_subclass,omitempty"`
	TaxonomyDirectParent string `json:"taxonomy_direct_parent,omitempty"`

	// Geordnete Listen aus dem Export, als JSONB abgelegt.
	AlternativeParents   datatypes.JSONSlice[string] `json:"alternative_parents,omitempty" gorm:"type:jsonb"`
	Synonyms             datatypes.JSONSlice[string] `json:"synonyms,omitempty" gorm:"type:jsonb"`
	CellularLocations    datatypes.JSONSlice[string] `json:"cellular_locations,omitempty" gorm:"type:jsonb"`
	BiospecimenLocations datatypes.JSONSlice[string] `json:"biospecimen_locations,omitempty" gorm:"type:jsonb"`
	TissueLocations      datatypes.JSONSlice[string] `json:"tissue_locations,omitempty" gorm:"type:jsonb"`

	// Metadaten der Quelle (Rohtext, HMDB liefert kein einheitliches Datumsformat).
	SourceCreated string `json:"source_created,omitempty"`
	SourceUpdated string `json:"source_updated,omitempty"`
	SourceVersion string `json:"source_version,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Metabolite) TableName() string {
	return "metabolites"
}

// MetaboliteMutableColumns sind die Spalten, die ein erneuter Import
// überschreiben darf. hmdb_id und id bleiben unangetastet.
var MetaboliteMutableColumns = []string{
	"updated_at",
	"name",
	"chemical_formula",
	"status",
	"molecular_weight_avg",
	"molecular_weight_monoisotopic",
	"iupac_name",
	"smiles",
	"inchi",
	"inchikey",
	"taxonomy_kingdom",
	"taxonomy_superclass",
	"taxonomy_class",
	"taxonomy_subclass",
	"taxonomy_direct_parent",
	"alternative_parents",
	"synonyms",
	"cellular_locations",
	"biospecimen_locations",
	"tissue_locations",
	"source_created",
	"source_updated",
	"source_version",
}
