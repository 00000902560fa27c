package models

// PredictedProperty ist eine vorhergesagte chemische Eigenschaft (logP,
// pKa, ...). Pro Metabolit ist das Paar (kind, source) eindeutig; ein
// erneuter Import aktualisiert nur den Wert.
type PredictedProperty struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	MetaboliteID uint   `json:"metabolite_id" gorm:"not null;uniqueIndex:idx_predicted_properties_natural,priority:1"`
	Kind         string `json:"kind" gorm:"column:property_kind;not null;uniqueIndex:idx_predicted_properties_natural,priority:2"`
	Value        string `json:"value,omitempty" gorm:"column:property_value"`
	Source       string `json:"source" gorm:"column:property_source;not null;default:'';uniqueIndex:idx_predicted_properties_natural,priority:3"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (PredictedProperty) TableName() string {
	return "predicted_properties"
}
