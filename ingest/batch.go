package ingest

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"metabo-hand/hmdb"
	"metabo-hand/models"
)

// Stats zählt, was ein Import-Lauf geschrieben bzw. verworfen hat.
type Stats struct {
	Metabolites    int64 `json:"metabolites"`
	Proteins       int64 `json:"proteins"`
	Pathways       int64 `json:"pathways"`
	Diseases       int64 `json:"diseases"`
	Concentrations int64 `json:"concentrations"`
	Properties     int64 `json:"properties"`
	Links          int64 `json:"links"`
	Skipped        int64 `json:"skipped"`
	Unresolved     int64 `json:"unresolved"`
}

func (s *Stats) add(o Stats) {
	s.Metabolites += o.Metabolites
	s.Proteins += o.Proteins
	s.Pathways += o.Pathways
	s.Diseases += o.Diseases
	s.Concentrations += o.Concentrations
	s.Properties += o.Properties
	s.Links += o.Links
	s.Skipped += o.Skipped
	s.Unresolved += o.Unresolved
}

// TransactionError beschreibt einen endgültig fehlgeschlagenen Batch-Commit.
// Bereits committete Batches bleiben gültig; der erneute Import derselben
// Datei ist dank der Upsert-Idempotenz gefahrlos.
type TransactionError struct {
	File  string
	Batch int
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("ingest: batch %d of %s failed permanently: %v", e.Batch, e.File, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// BatchWriter sammelt extrahierte Datensätze in einer typisierten Arena,
// dedupliziert sie über ihre natürlichen Schlüssel (letzter gewinnt) und
// schreibt sie ab der konfigurierten Batch-Größe in einer Transaktion.
// Entitäten werden vor ihren abhängigen Zeilen committed; Join-Zeilen sind
// Conflict-safe eingefügt, damit ein erneuter Import keine Duplikate erzeugt.
type BatchWriter struct {
	db   *gorm.DB
	log  *zap.Logger
	file string
	size int

	metabolites map[string]*hmdb.MetaboliteRecord
	proteins    map[string]*hmdb.ProteinRecord
	batches     int
	stats       Stats
}

// NewBatchWriter erstellt einen BatchWriter für eine Quelldatei.
func NewBatchWriter(db *gorm.DB, log *zap.Logger, file string, size int) *BatchWriter {
	if size <= 0 {
		size = 500
	}
	return &BatchWriter{
		db:          db,
		log:         log,
		file:        file,
		size:        size,
		metabolites: make(map[string]*hmdb.MetaboliteRecord),
		proteins:    make(map[string]*hmdb.ProteinRecord),
	}
}

// AddMetabolite nimmt einen Datensatz in die Arena auf und flusht bei
// Erreichen der Batch-Größe.
func (w *BatchWriter) AddMetabolite(ctx context.Context, rec *hmdb.MetaboliteRecord) error {
	w.metabolites[rec.Metabolite.HMDBID] = rec
	return w.maybeFlush(ctx)
}

// AddProtein nimmt einen Protein-Datensatz in die Arena auf.
func (w *BatchWriter) AddProtein(ctx context.Context, rec *hmdb.ProteinRecord) error {
	w.proteins[rec.Protein.UniprotID] = rec
	return w.maybeFlush(ctx)
}

// Skip zählt einen übersprungenen Quelldatensatz (fehlender natürlicher
// Schlüssel).
func (w *BatchWriter) Skip() {
	w.stats.Skipped++
	skippedCounter.Inc()
}

// Stats gibt die bisher akkumulierten Zähler zurück.
func (w *BatchWriter) Stats() Stats { return w.stats }

// Pending gibt die Anzahl der noch nicht committeten Datensätze zurück.
func (w *BatchWriter) Pending() int { return len(w.metabolites) + len(w.proteins) }

func (w *BatchWriter) maybeFlush(ctx context.Context) error {
	if w.Pending() < w.size {
		return nil
	}
	return w.Flush(ctx)
}

// Close flusht alle verbleibenden Datensätze.
func (w *BatchWriter) Close(ctx context.Context) error {
	return w.Flush(ctx)
}

// Flush committet die Arena in einer Transaktion. Schlägt sie fehl, wird
// einmalig in zwei halbierten Batches wiederholt; ein zweiter Fehlschlag
// bricht den Import der Datei ab.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if w.Pending() == 0 {
		return nil
	}
	w.batches++
	mets, prots := w.metabolites, w.proteins
	w.metabolites = make(map[string]*hmdb.MetaboliteRecord)
	w.proteins = make(map[string]*hmdb.ProteinRecord)

	delta, err := w.commit(ctx, mets, prots)
	if err == nil {
		w.record(delta)
		return nil
	}

	w.log.Warn("Batch-Commit fehlgeschlagen, wiederhole mit halbierter Batch-Größe",
		zap.String("file", w.file), zap.Int("batch", w.batches), zap.Error(err))

	metHalves := splitRecords(mets)
	protHalves := splitProteins(prots)
	for i := 0; i < 2; i++ {
		delta, err := w.commit(ctx, metHalves[i], protHalves[i])
		if err != nil {
			return &TransactionError{File: w.file, Batch: w.batches, Err: err}
		}
		w.record(delta)
	}
	return nil
}

func (w *BatchWriter) record(delta Stats) {
	w.stats.add(delta)
	upsertedCounter.WithLabelValues("metabolite").Add(float64(delta.Metabolites))
	upsertedCounter.WithLabelValues("protein").Add(float64(delta.Proteins))
	upsertedCounter.WithLabelValues("pathway").Add(float64(delta.Pathways))
	upsertedCounter.WithLabelValues("disease").Add(float64(delta.Diseases))
	upsertedCounter.WithLabelValues("concentration").Add(float64(delta.Concentrations))
	upsertedCounter.WithLabelValues("predicted_property").Add(float64(delta.Properties))
	unresolvedCounter.Add(float64(delta.Unresolved))
	if delta.Unresolved > 0 {
		w.log.Warn("Beziehungen ohne auflösbare Gegenseite verworfen",
			zap.String("file", w.file), zap.Int64("dropped", delta.Unresolved))
	}
}

type pathwayKey struct{ name, kegg, smpdb string }

type linkKey struct{ left, right uint }

// commit schreibt einen Batch in einer Transaktion: erst die Entitäten per
// Upsert auf dem natürlichen Schlüssel, dann die Auflösung der
// Surrogatschlüssel, zuletzt Join- und Kindzeilen.
func (w *BatchWriter) commit(ctx context.Context, mets map[string]*hmdb.MetaboliteRecord, prots map[string]*hmdb.ProteinRecord) (Stats, error) {
	var delta Stats
	if len(mets)+len(prots) == 0 {
		return delta, nil
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delta = Stats{}

		// 1) Metaboliten upserten. Sortiert nach Accession, damit parallel
		// laufende Dateien eine stabile Sperr-Reihenfolge haben.
		if len(mets) > 0 {
			rows := make([]models.Metabolite, 0, len(mets))
			for _, acc := range sortedKeys(mets) {
				rows = append(rows, mets[acc].Metabolite)
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hmdb_id"}},
				DoUpdates: clause.AssignmentColumns(models.MetaboliteMutableColumns),
			}).Create(&rows)
			if res.Error != nil {
				return res.Error
			}
			delta.Metabolites += res.RowsAffected
		}

		// 2) Proteine upserten.
		if len(prots) > 0 {
			rows := make([]models.Protein, 0, len(prots))
			for _, id := range sortedKeys(prots) {
				rows = append(rows, prots[id].Protein)
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "uniprot_id"}},
				DoUpdates: clause.AssignmentColumns(models.ProteinMutableColumns),
			}).Create(&rows)
			if res.Error != nil {
				return res.Error
			}
			delta.Proteins += res.RowsAffected
		}

		// 3) Surrogatschlüssel auflösen, inklusive der Fernseiten aus den
		// Assoziationslisten. Insert-then-lookup: die eigenen Zeilen dieses
		// Batches sind innerhalb der Transaktion bereits sichtbar, Fernseiten
		// aus anderen Dateien nur, wenn sie schon committed wurden.
		metIDs, err := lookupIDs(tx, &models.Metabolite{}, "hmdb_id", metaboliteAccessions(mets, prots))
		if err != nil {
			return err
		}
		protIDs, err := lookupIDs(tx, &models.Protein{}, "uniprot_id", proteinAccessions(mets, prots))
		if err != nil {
			return err
		}

		// 4) Pathways global dedupliziert upserten und IDs einsammeln.
		pathwayIDs, n, err := upsertPathways(tx, mets)
		if err != nil {
			return err
		}
		delta.Pathways += n

		// 5) Diseases global dedupliziert upserten.
		diseaseIDs, n, err := upsertDiseases(tx, mets)
		if err != nil {
			return err
		}
		delta.Diseases += n

		// 6) Join-Zeilen, Konzentrationen und Eigenschaften.
		if err := w.writeDependents(tx, mets, prots, metIDs, protIDs, pathwayIDs, diseaseIDs, &delta); err != nil {
			return err
		}
		return nil
	})
	return delta, err
}

func (w *BatchWriter) writeDependents(
	tx *gorm.DB,
	mets map[string]*hmdb.MetaboliteRecord,
	prots map[string]*hmdb.ProteinRecord,
	metIDs, protIDs map[string]uint,
	pathwayIDs map[pathwayKey]uint,
	diseaseIDs map[string]uint,
	delta *Stats,
) error {
	var (
		pathwayLinks  []models.MetabolitePathway
		diseaseLinks  []models.DiseaseMetabolite
		proteinLinks  []models.ProteinMetabolite
		concRows      []models.Concentration
		propRows      []models.PredictedProperty
		seenPwyLink   = make(map[linkKey]bool)
		seenDisLink   = make(map[linkKey]bool)
		seenProtLink  = make(map[linkKey]bool)
		seenPropTuple = make(map[string]bool)
	)

	for _, acc := range sortedKeys(mets) {
		rec := mets[acc]
		metID, ok := metIDs[acc]
		if !ok {
			// Darf nicht vorkommen, der Upsert lief in derselben Transaktion.
			delta.Unresolved += int64(len(rec.Pathways) + len(rec.Diseases) + len(rec.Concentrations) + len(rec.Properties) + len(rec.ProteinAccessions))
			continue
		}

		for _, p := range rec.Pathways {
			pid, ok := pathwayIDs[pathwayKey{p.Name, p.KeggID, p.SmpdbID}]
			if !ok {
				delta.Unresolved++
				continue
			}
			if k := (linkKey{metID, pid}); !seenPwyLink[k] {
				seenPwyLink[k] = true
				pathwayLinks = append(pathwayLinks, models.MetabolitePathway{MetaboliteID: metID, PathwayID: pid})
			}
		}

		for _, d := range rec.Diseases {
			did, ok := diseaseIDs[d.Name]
			if !ok {
				delta.Unresolved++
				continue
			}
			if k := (linkKey{did, metID}); !seenDisLink[k] {
				seenDisLink[k] = true
				diseaseLinks = append(diseaseLinks, models.DiseaseMetabolite{DiseaseID: did, MetaboliteID: metID})
			}
		}

		for _, uniprot := range rec.ProteinAccessions {
			pid, ok := protIDs[uniprot]
			if !ok {
				delta.Unresolved++
				continue
			}
			if k := (linkKey{pid, metID}); !seenProtLink[k] {
				seenProtLink[k] = true
				proteinLinks = append(proteinLinks, models.ProteinMetabolite{ProteinID: pid, MetaboliteID: metID})
			}
		}

		for _, c := range rec.Concentrations {
			c.MetaboliteID = metID
			concRows = append(concRows, c)
		}

		for _, p := range rec.Properties {
			tuple := fmt.Sprintf("%d\x00%s\x00%s", metID, p.Kind, p.Source)
			if seenPropTuple[tuple] {
				continue
			}
			seenPropTuple[tuple] = true
			p.MetaboliteID = metID
			propRows = append(propRows, p)
		}
	}

	for _, id := range sortedKeys(prots) {
		rec := prots[id]
		protID, ok := protIDs[id]
		if !ok {
			delta.Unresolved += int64(len(rec.MetaboliteAccessions))
			continue
		}
		for _, acc := range rec.MetaboliteAccessions {
			metID, ok := metIDs[acc]
			if !ok {
				// Fernseite (noch) unbekannt, z.B. weil die Metabolit-Datei
				// später importiert wird. Verwerfen, nicht scheitern.
				delta.Unresolved++
				continue
			}
			if k := (linkKey{protID, metID}); !seenProtLink[k] {
				seenProtLink[k] = true
				proteinLinks = append(proteinLinks, models.ProteinMetabolite{ProteinID: protID, MetaboliteID: metID})
			}
		}
	}

	if len(pathwayLinks) > 0 {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&pathwayLinks)
		if res.Error != nil {
			return res.Error
		}
		delta.Links += res.RowsAffected
	}
	if len(diseaseLinks) > 0 {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&diseaseLinks)
		if res.Error != nil {
			return res.Error
		}
		delta.Links += res.RowsAffected
	}
	if len(proteinLinks) > 0 {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&proteinLinks)
		if res.Error != nil {
			return res.Error
		}
		delta.Links += res.RowsAffected
	}

	if len(concRows) > 0 {
		res := tx.Create(&concRows)
		if res.Error != nil {
			return res.Error
		}
		delta.Concentrations += res.RowsAffected
	}

	if len(propRows) > 0 {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "metabolite_id"}, {Name: "property_kind"}, {Name: "property_source"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"property_value"}),
		}).Create(&propRows)
		if res.Error != nil {
			return res.Error
		}
		delta.Properties += res.RowsAffected
	}

	return nil
}

// upsertPathways schreibt alle Pathways des Batches global dedupliziert und
// gibt die Surrogatschlüssel je natürlichem Schlüssel zurück.
func upsertPathways(tx *gorm.DB, mets map[string]*hmdb.MetaboliteRecord) (map[pathwayKey]uint, int64, error) {
	unique := make(map[pathwayKey]models.Pathway)
	for _, rec := range mets {
		for _, p := range rec.Pathways {
			unique[pathwayKey{p.Name, p.KeggID, p.SmpdbID}] = p
		}
	}
	ids := make(map[pathwayKey]uint, len(unique))
	if len(unique) == 0 {
		return ids, 0, nil
	}

	rows := make([]models.Pathway, 0, len(unique))
	tuples := make([][]interface{}, 0, len(unique))
	for k, p := range unique {
		rows = append(rows, p)
		tuples = append(tuples, []interface{}{k.name, k.kegg, k.smpdb})
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return nil, 0, res.Error
	}

	var found []models.Pathway
	if err := tx.Where("(name, kegg_id, smpdb_id) IN ?", tuples).Find(&found).Error; err != nil {
		return nil, 0, err
	}
	for _, p := range found {
		ids[pathwayKey{p.Name, p.KeggID, p.SmpdbID}] = p.ID
	}
	return ids, res.RowsAffected, nil
}

// upsertDiseases schreibt alle Krankheiten des Batches global dedupliziert;
// die Literaturangabe wird beim Konflikt aktualisiert.
func upsertDiseases(tx *gorm.DB, mets map[string]*hmdb.MetaboliteRecord) (map[string]uint, int64, error) {
	unique := make(map[string]models.Disease)
	for _, rec := range mets {
		for _, d := range rec.Diseases {
			unique[d.Name] = d
		}
	}
	ids := make(map[string]uint, len(unique))
	if len(unique) == 0 {
		return ids, 0, nil
	}

	rows := make([]models.Disease, 0, len(unique))
	names := make([]string, 0, len(unique))
	for name, d := range unique {
		rows = append(rows, d)
		names = append(names, name)
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"reference"}),
	}).Create(&rows)
	if res.Error != nil {
		return nil, 0, res.Error
	}

	var found []models.Disease
	if err := tx.Select("id", "name").Where("name IN ?", names).Find(&found).Error; err != nil {
		return nil, 0, err
	}
	for _, d := range found {
		ids[d.Name] = d.ID
	}
	return ids, res.RowsAffected, nil
}

// lookupIDs löst natürliche Schlüssel in Surrogatschlüssel auf.
func lookupIDs(tx *gorm.DB, model interface{}, keyColumn string, keys []string) (map[string]uint, error) {
	ids := make(map[string]uint, len(keys))
	if len(keys) == 0 {
		return ids, nil
	}
	var rows []struct {
		ID  uint
		Key string
	}
	err := tx.Model(model).
		Select("id", keyColumn+" AS key").
		Where(keyColumn+" IN ?", keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		ids[r.Key] = r.ID
	}
	return ids, nil
}

func metaboliteAccessions(mets map[string]*hmdb.MetaboliteRecord, prots map[string]*hmdb.ProteinRecord) []string {
	seen := make(map[string]bool)
	for acc := range mets {
		seen[acc] = true
	}
	for _, rec := range prots {
		for _, acc := range rec.MetaboliteAccessions {
			seen[acc] = true
		}
	}
	return setToSlice(seen)
}

func proteinAccessions(mets map[string]*hmdb.MetaboliteRecord, prots map[string]*hmdb.ProteinRecord) []string {
	seen := make(map[string]bool)
	for id := range prots {
		seen[id] = true
	}
	for _, rec := range mets {
		for _, id := range rec.ProteinAccessions {
			seen[id] = true
		}
	}
	return setToSlice(seen)
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitRecords halbiert die Arena für den Retry-Pfad.
func splitRecords(m map[string]*hmdb.MetaboliteRecord) [2]map[string]*hmdb.MetaboliteRecord {
	halves := [2]map[string]*hmdb.MetaboliteRecord{
		make(map[string]*hmdb.MetaboliteRecord),
		make(map[string]*hmdb.MetaboliteRecord),
	}
	keys := sortedKeys(m)
	for i, k := range keys {
		if i < len(keys)/2 {
			halves[0][k] = m[k]
		} else {
			halves[1][k] = m[k]
		}
	}
	return halves
}

func splitProteins(m map[string]*hmdb.ProteinRecord) [2]map[string]*hmdb.ProteinRecord {
	halves := [2]map[string]*hmdb.ProteinRecord{
		make(map[string]*hmdb.ProteinRecord),
		make(map[string]*hmdb.ProteinRecord),
	}
	keys := sortedKeys(m)
	for i, k := range keys {
		if i < len(keys)/2 {
			halves[0][k] = m[k]
		} else {
			halves[1][k] = m[k]
		}
	}
	return halves
}
