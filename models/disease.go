package models

// Disease repräsentiert eine Krankheit aus dem Export. Global dedupliziert
// über den Namen; die Literaturangabe ist ein veränderbares Freitextfeld.
type Disease struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"not null;uniqueIndex"`
	Reference string `json:"reference,omitempty" gorm:"type:text"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Disease) TableName() string {
	return "diseases"
}

// DiseaseMetabolite ist die m:n-Verknüpfung zwischen Krankheiten und Metaboliten.
type DiseaseMetabolite struct {
	DiseaseID    uint `json:"disease_id" gorm:"primaryKey;autoIncrement:false"`
	MetaboliteID uint `json:"metabolite_id" gorm:"primaryKey;autoIncrement:false"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (DiseaseMetabolite) TableName() string {
	return "disease_metabolites"
}
