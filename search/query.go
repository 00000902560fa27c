package search

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"metabo-hand/models"
)

// Hit ist eine Ergebniszeile der Lookup- und Suchoperationen. Matched ist
// bei Join-Abfragen der getroffene Krankheits- bzw. Pathway-Name, Rank nur
// bei der Volltextsuche gesetzt.
type Hit struct {
	ID              uint    `json:"id"`
	HMDBID          string  `json:"hmdb_id" gorm:"column:hmdb_id"`
	Name            string  `json:"name"`
	ChemicalFormula string  `json:"chemical_formula,omitempty"`
	Matched         string  `json:"matched,omitempty"`
	Rank            float64 `json:"rank,omitempty"`
}

// Service bündelt die read-only Abfragen, die der (externe) Chat-Frontend-
// Kollaborateur aufrufen darf. Jede exact-or-partial-Operation versucht
// zuerst einen case-insensitiven Exakttreffer und fällt nur bei null
// Zeilen auf eine Substring-Suche zurück.
type Service struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	DefaultLimit int
}

// NewService erstellt eine neue Instanz des Query-Service.
func NewService(db *gorm.DB, logger *zap.Logger, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &Service{DB: db, Logger: logger, DefaultLimit: defaultLimit}
}

func (s *Service) limitOrDefault(limit int) int {
	if limit <= 0 {
		return s.DefaultLimit
	}
	return limit
}

// ByHMDBID gibt den Metaboliten zur Accession zurück, nil wenn es ihn
// nicht gibt. Ein fehlender Datensatz ist kein Fehler.
func (s *Service) ByHMDBID(ctx context.Context, hmdbID string) (*models.Metabolite, error) {
	var m models.Metabolite
	err := s.DB.WithContext(ctx).Where("hmdb_id = ?", hmdbID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ByName sucht Metaboliten über den Namen: exakt zuerst, dann Substring
// über Name und Synonyme.
func (s *Service) ByName(ctx context.Context, name string, limit int) ([]Hit, error) {
	limit = s.limitOrDefault(limit)
	db := s.DB.WithContext(ctx)

	var hits []Hit
	err := db.Raw(`
		SELECT id, hmdb_id, name, chemical_formula
		  FROM metabolites
		 WHERE lower(name) = lower(?)
		 LIMIT ?`, name, limit).Scan(&hits).Error
	if err != nil || len(hits) > 0 {
		return hits, err
	}

	err = db.Raw(`
		SELECT id, hmdb_id, name, chemical_formula
		  FROM metabolites
		 WHERE name ILIKE ?
		    OR synonyms::text ILIKE ?
		 LIMIT ?`, "%"+name+"%", "%"+name+"%", limit).Scan(&hits).Error
	return hits, err
}

// ByDisease sucht Metaboliten über verknüpfte Krankheiten.
func (s *Service) ByDisease(ctx context.Context, disease string, limit int) ([]Hit, error) {
	limit = s.limitOrDefault(limit)
	db := s.DB.WithContext(ctx)

	var hits []Hit
	err := db.Raw(`
		SELECT m.id, m.hmdb_id, m.name, m.chemical_formula, d.name AS matched
		  FROM diseases d
		  JOIN disease_metabolites dm ON dm.disease_id = d.id
		  JOIN metabolites m ON m.id = dm.metabolite_id
		 WHERE lower(d.name) = lower(?)
		 LIMIT ?`, disease, limit).Scan(&hits).Error
	if err != nil || len(hits) > 0 {
		return hits, err
	}

	err = db.Raw(`
		SELECT m.id, m.hmdb_id, m.name, m.chemical_formula, d.name AS matched
		  FROM diseases d
		  JOIN disease_metabolites dm ON dm.disease_id = d.id
		  JOIN metabolites m ON m.id = dm.metabolite_id
		 WHERE d.name ILIKE ?
		 LIMIT ?`, "%"+disease+"%", limit).Scan(&hits).Error
	return hits, err
}

// ByPathway sucht Metaboliten über verknüpfte Pathways.
func (s *Service) ByPathway(ctx context.Context, pathway string, limit int) ([]Hit, error) {
	limit = s.limitOrDefault(limit)
	db := s.DB.WithContext(ctx)

	var hits []Hit
	err := db.Raw(`
		SELECT m.id, m.hmdb_id, m.name, m.chemical_formula, p.name AS matched
		  FROM pathways p
		  JOIN metabolite_pathways mp ON mp.pathway_id = p.id
		  JOIN metabolites m ON m.id = mp.metabolite_id
		 WHERE lower(p.name) = lower(?)
		 LIMIT ?`, pathway, limit).Scan(&hits).Error
	if err != nil || len(hits) > 0 {
		return hits, err
	}

	err = db.Raw(`
		SELECT m.id, m.hmdb_id, m.name, m.chemical_formula, p.name AS matched
		  FROM pathways p
		  JOIN metabolite_pathways mp ON mp.pathway_id = p.id
		  JOIN metabolites m ON m.id = mp.metabolite_id
		 WHERE p.name ILIKE ?
		 LIMIT ?`, "%"+pathway+"%", limit).Scan(&hits).Error
	return hits, err
}

// ByBiofluid gibt Metaboliten zurück, die in der angegebenen Biospecimen-
// Lokation vorkommen (exakter, case-insensitiver Vergleich pro Eintrag).
func (s *Service) ByBiofluid(ctx context.Context, biofluid string, limit int) ([]Hit, error) {
	limit = s.limitOrDefault(limit)

	var hits []Hit
	err := s.DB.WithContext(ctx).Raw(`
		SELECT id, hmdb_id, name, chemical_formula
		  FROM metabolites
		 WHERE EXISTS (
			SELECT 1
			  FROM jsonb_array_elements_text(coalesce(biospecimen_locations, '[]'::jsonb)) AS b(value)
			 WHERE lower(b.value) = lower(?)
		 )
		 LIMIT ?`, biofluid, limit).Scan(&hits).Error
	return hits, err
}

// FullTextSearch sucht im gewichteten Suchdokument. Die Sortierung ist
// eine strikte Rangordnung über die Gewichtsklassen: ein Name-Treffer (A)
// schlägt jeden reinen Biospecimen-Treffer (B) usw., unabhängig von der
// Termfrequenz; innerhalb einer Klasse entscheidet ts_rank_cd. Liefert die
// Volltextsuche null Zeilen, greift die Substring-Suche über Name,
// Synonyme und Biospecimen-Lokationen.
func (s *Service) FullTextSearch(ctx context.Context, term string, limit int) ([]Hit, error) {
	limit = s.limitOrDefault(limit)
	db := s.DB.WithContext(ctx)

	var hits []Hit
	err := db.Raw(`
		SELECT m.id, m.hmdb_id, m.name, m.chemical_formula,
		       ts_rank_cd(m.doc, q.query) AS rank
		  FROM metabolites m,
		       plainto_tsquery('english', ?) AS q(query)
		 WHERE m.doc @@ q.query
		 ORDER BY (ts_filter(m.doc, '{a}') @@ q.query) DESC,
		          (ts_filter(m.doc, '{b}') @@ q.query) DESC,
		          (ts_filter(m.doc, '{c}') @@ q.query) DESC,
		          rank DESC
		 LIMIT ?`, term, limit).Scan(&hits).Error
	if err != nil || len(hits) > 0 {
		return hits, err
	}

	err = db.Raw(`
		SELECT id, hmdb_id, name, chemical_formula
		  FROM metabolites
		 WHERE name ILIKE ?
		    OR synonyms::text ILIKE ?
		    OR biospecimen_locations::text ILIKE ?
		 LIMIT ?`, "%"+term+"%", "%"+term+"%", "%"+term+"%", limit).Scan(&hits).Error
	return hits, err
}

// PropertiesFor gibt die vorhergesagten Eigenschaften eines Metaboliten
// zurück, leere Liste wenn die Accession unbekannt ist.
func (s *Service) PropertiesFor(ctx context.Context, hmdbID string) ([]models.PredictedProperty, error) {
	m, err := s.ByHMDBID(ctx, hmdbID)
	if err != nil || m == nil {
		return nil, err
	}
	var props []models.PredictedProperty
	err = s.DB.WithContext(ctx).Where("metabolite_id = ?", m.ID).Find(&props).Error
	return props, err
}

// ConcentrationsFor gibt die Messungen eines Metaboliten zurück, optional
// gefiltert nach Typ ("normal" oder "abnormal").
func (s *Service) ConcentrationsFor(ctx context.Context, hmdbID, ctype string) ([]models.Concentration, error) {
	m, err := s.ByHMDBID(ctx, hmdbID)
	if err != nil || m == nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx).Where("metabolite_id = ?", m.ID)
	if ctype != "" {
		db = db.Where("concentration_type = ?", ctype)
	}
	var concs []models.Concentration
	err = db.Find(&concs).Error
	return concs, err
}

// ProteinsFor gibt die mit einem Metaboliten verknüpften Proteine zurück.
func (s *Service) ProteinsFor(ctx context.Context, hmdbID string) ([]models.Protein, error) {
	m, err := s.ByHMDBID(ctx, hmdbID)
	if err != nil || m == nil {
		return nil, err
	}
	var prots []models.Protein
	err = s.DB.WithContext(ctx).Raw(`
		SELECT p.*
		  FROM proteins p
		  JOIN protein_metabolites pm ON pm.protein_id = p.id
		 WHERE pm.metabolite_id = ?`, m.ID).Scan(&prots).Error
	return prots, err
}
