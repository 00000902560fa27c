// Package search pflegt das gewichtete Suchdokument der Metaboliten und
// stellt die Lookup-Operationen für den Chat-Kollaborateur bereit.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rebuildSQL berechnet die doc-Spalte für alle Metaboliten neu. Die
// Gewichtsklassen bilden eine strikte Rangordnung ab:
//
//	A  Name
//	B  Biospecimen-Lokationen
//	C  Synonyme und verknüpfte Krankheitsnamen
//	D  verknüpfte Pathway-Namen
//
// Die Spalte ist rein abgeleitet und spiegelt nach jedem Lauf den
// relationalen Stand wider; mehrfaches Ausführen ist unkritisch.
const rebuildSQL = `
UPDATE metabolites AS m SET doc =
	   setweight(to_tsvector('english', coalesce(m.name, '')), 'A')
	|| setweight(to_tsvector('english', coalesce((
			SELECT string_agg(b.value, ' ')
			  FROM jsonb_array_elements_text(coalesce(m.biospecimen_locations, '[]'::jsonb)) AS b(value)
		), '')), 'B')
	|| setweight(to_tsvector('english', coalesce((
			SELECT string_agg(s.value, ' ')
			  FROM jsonb_array_elements_text(coalesce(m.synonyms, '[]'::jsonb)) AS s(value)
		), '') || ' ' || coalesce((
			SELECT string_agg(d.name, ' ')
			  FROM disease_metabolites dm
			  JOIN diseases d ON d.id = dm.disease_id
			 WHERE dm.metabolite_id = m.id
		), '')), 'C')
	|| setweight(to_tsvector('english', coalesce((
			SELECT string_agg(p.name, ' ')
			  FROM metabolite_pathways mp
			  JOIN pathways p ON p.id = mp.pathway_id
			 WHERE mp.metabolite_id = m.id
		), '')), 'D')
`

// IndexBuilder berechnet das Suchdokument neu. Aufrufer sequenzieren
// "erst importieren, dann reindizieren"; der Rebuild läuft als eine lange
// Transaktion und nicht parallel zu aktiven Import-Writern.
type IndexBuilder struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewIndexBuilder erstellt eine neue Instanz des IndexBuilders.
func NewIndexBuilder(db *gorm.DB, logger *zap.Logger) *IndexBuilder {
	return &IndexBuilder{DB: db, Logger: logger}
}

// Rebuild berechnet die doc-Spalte für alle Metaboliten neu.
func (b *IndexBuilder) Rebuild(ctx context.Context) error {
	start := time.Now()
	res := b.DB.WithContext(ctx).Exec(rebuildSQL)
	if res.Error != nil {
		b.Logger.Error("Reindex fehlgeschlagen", zap.Error(res.Error))
		return res.Error
	}
	b.Logger.Info("Suchindex neu aufgebaut",
		zap.Int64("metabolites", res.RowsAffected),
		zap.Duration("duration", time.Since(start)))
	return nil
}
