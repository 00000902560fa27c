package models

// Pathway repräsentiert einen Stoffwechselweg. Global dedupliziert über
// Name + Cross-Referenzen; die IDs der Quellsysteme (KEGG, SMPDB) sind
// optional und werden als Leerstring statt NULL gespeichert, damit der
// Unique-Index bei erneutem Import greift.
type Pathway struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Name    string `json:"name" gorm:"not null;uniqueIndex:idx_pathways_natural,priority:1"`
	KeggID  string `json:"kegg_id,omitempty" gorm:"not null;default:'';uniqueIndex:idx_pathways_natural,priority:2"`
	SmpdbID string `json:"smpdb_id,omitempty" gorm:"not null;default:'';uniqueIndex:idx_pathways_natural,priority:3"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Pathway) TableName() string {
	return "pathways"
}

// MetabolitePathway ist die m:n-Verknüpfung zwischen Metaboliten und Pathways.
type MetabolitePathway struct {
	MetaboliteID uint `json:"metabolite_id" gorm:"primaryKey;autoIncrement:false"`
	PathwayID    uint `json:"pathway_id" gorm:"primaryKey;autoIncrement:false"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (MetabolitePathway) TableName() string {
	return "metabolite_pathways"
}
