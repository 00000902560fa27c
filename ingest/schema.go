// Package ingest lädt HMDB-XML-Exporte in das relationale Schema:
// Schema-Verwaltung, Batch-Upserts und die Orchestrierung pro Datei.
package ingest

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"metabo-hand/models"
)

// schemaDDL ergänzt, was GORM-AutoMigrate nicht abbildet: die gewichtete
// tsvector-Spalte samt GIN-Index und die Fremdschlüssel der Join- und
// Kindtabellen. Alle Statements sind idempotent.
var schemaDDL = []string{
	`ALTER TABLE metabolites ADD COLUMN IF NOT EXISTS doc tsvector`,
	`CREATE INDEX IF NOT EXISTS idx_metabolites_doc ON metabolites USING GIN (doc)`,

	fkDDL("metabolite_pathways", "fk_metabolite_pathways_metabolite", "metabolite_id", "metabolites"),
	fkDDL("metabolite_pathways", "fk_metabolite_pathways_pathway", "pathway_id", "pathways"),
	fkDDL("disease_metabolites", "fk_disease_metabolites_disease", "disease_id", "diseases"),
	fkDDL("disease_metabolites", "fk_disease_metabolites_metabolite", "metabolite_id", "metabolites"),
	fkDDL("protein_metabolites", "fk_protein_metabolites_protein", "protein_id", "proteins"),
	fkDDL("protein_metabolites", "fk_protein_metabolites_metabolite", "metabolite_id", "metabolites"),
	fkDDL("concentrations", "fk_concentrations_metabolite", "metabolite_id", "metabolites"),
	fkDDL("predicted_properties", "fk_predicted_properties_metabolite", "metabolite_id", "metabolites"),
}

func fkDDL(table, name, column, refTable string) string {
	return `DO $$ BEGIN
		ALTER TABLE ` + table + ` ADD CONSTRAINT ` + name + `
			FOREIGN KEY (` + column + `) REFERENCES ` + refTable + `(id) ON DELETE CASCADE;
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`
}

// SchemaManager legt Tabellen, Unique-Constraints und Indexe an. Die
// Unique-Constraints auf den natürlichen Schlüsseln sind die Grundlage
// dafür, dass der BatchWriter gefahrlos wiederholt einspielen kann.
type SchemaManager struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewSchemaManager erstellt eine neue Instanz des SchemaManagers.
func NewSchemaManager(db *gorm.DB, logger *zap.Logger) *SchemaManager {
	return &SchemaManager{DB: db, Logger: logger}
}

// EnsureSchema stellt das Schema her bzw. verifiziert es. Mehrfaches
// Aufrufen ist unkritisch.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	db := m.DB.WithContext(ctx)

	if err := db.AutoMigrate(
		&models.Metabolite{},
		&models.Pathway{},
		&models.Disease{},
		&models.Protein{},
		&models.Concentration{},
		&models.PredictedProperty{},
		&models.MetabolitePathway{},
		&models.DiseaseMetabolite{},
		&models.ProteinMetabolite{},
	); err != nil {
		return err
	}

	for _, ddl := range schemaDDL {
		if err := db.Exec(ddl).Error; err != nil {
			return err
		}
	}

	m.Logger.Info("Schema angelegt bzw. verifiziert.")
	return nil
}
