package models

// Concentration ist eine einzelne Messung aus normal_concentrations bzw.
// abnormal_concentrations. Messungen sind naturgemäß nicht eindeutig und
// werden deshalb nicht dedupliziert.
type Concentration struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	MetaboliteID uint `json:"metabolite_id" gorm:"not null;index"`

	// "normal" oder "abnormal"
	Type     string `json:"type" gorm:"column:concentration_type;not null"`
	Biofluid string `json:"biofluid,omitempty" gorm:"column:biofluid_type"`
	Value    string `json:"value,omitempty" gorm:"column:concentration_value"`

	SubjectAge       string `json:"subject_age,omitempty"`
	SubjectSex       string `json:"subject_sex,omitempty"`
	SubjectCondition string `json:"subject_condition,omitempty"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Concentration) TableName() string {
	return "concentrations"
}
