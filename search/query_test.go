package search

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"metabo-hand/hmdb"
	"metabo-hand/ingest"
	"metabo-hand/models"
)

// Die Suchpfade sind Postgres-spezifisch (tsvector, ILIKE, jsonb) und
// laufen deshalb nur gegen eine echte Instanz.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, ingest.NewSchemaManager(db, zap.NewNop()).EnsureSchema(context.Background()))
	return db
}

var searchAccessions = []string{"HMDBSEARCH01", "HMDBSEARCH02", "HMDBSEARCH03"}

func seedSearchFixture(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	sub := "SELECT id FROM metabolites WHERE hmdb_id IN ?"
	for _, stmt := range []string{
		"DELETE FROM concentrations WHERE metabolite_id IN (" + sub + ")",
		"DELETE FROM predicted_properties WHERE metabolite_id IN (" + sub + ")",
		"DELETE FROM metabolite_pathways WHERE metabolite_id IN (" + sub + ")",
		"DELETE FROM disease_metabolites WHERE metabolite_id IN (" + sub + ")",
		"DELETE FROM protein_metabolites WHERE metabolite_id IN (" + sub + ")",
	} {
		require.NoError(t, db.Exec(stmt, searchAccessions).Error)
	}
	require.NoError(t, db.Exec("DELETE FROM metabolites WHERE hmdb_id IN ?", searchAccessions).Error)

	w := ingest.NewBatchWriter(db, zap.NewNop(), "fixture", 50)

	// Name-Treffer (Gewicht A).
	require.NoError(t, w.AddMetabolite(ctx, &hmdb.MetaboliteRecord{
		Metabolite: models.Metabolite{
			HMDBID:               "HMDBSEARCH01",
			Name:                 "Xylotriptanol",
			ChemicalFormula:      "C9H13NO3",
			Synonyms:             datatypes.NewJSONSlice([]string{"Triptoxylol"}),
			BiospecimenLocations: datatypes.NewJSONSlice([]string{"Cerebral Testfluid"}),
		},
		Diseases: []models.Disease{{Name: "Xylotriptanolosis"}},
	}))

	// Reiner Pathway-Treffer (Gewicht D).
	require.NoError(t, w.AddMetabolite(ctx, &hmdb.MetaboliteRecord{
		Metabolite: models.Metabolite{HMDBID: "HMDBSEARCH02", Name: "Bentazepinol"},
		Pathways:   []models.Pathway{{Name: "Xylotriptanol cycle", SmpdbID: "SMPSEARCH01"}},
	}))

	// Trifft den Suchbegriff gar nicht.
	require.NoError(t, w.AddMetabolite(ctx, &hmdb.MetaboliteRecord{
		Metabolite: models.Metabolite{HMDBID: "HMDBSEARCH03", Name: "Quorvaline"},
	}))

	require.NoError(t, w.Close(ctx))
	require.NoError(t, NewIndexBuilder(db, zap.NewNop()).Rebuild(ctx))
}

func TestFullTextSearchRanksNameAboveLinkedPathway(t *testing.T) {
	db := openTestDB(t)
	seedSearchFixture(t, db)
	svc := NewService(db, zap.NewNop(), 5)

	hits, err := svc.FullTextSearch(context.Background(), "xylotriptanol", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Der Name-Treffer schlägt den Pathway-Treffer unabhängig von der
	// Termfrequenz.
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)
	assert.Equal(t, "HMDBSEARCH02", hits[1].HMDBID)
}

func TestFullTextSearchFallsBackToSubstring(t *testing.T) {
	db := openTestDB(t)
	seedSearchFixture(t, db)
	svc := NewService(db, zap.NewNop(), 5)

	// "ylotriptan" ist kein Lexem, nur die Substring-Suche findet es.
	hits, err := svc.FullTextSearch(context.Background(), "ylotriptan", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)
}

func TestByNameExactBeforeSubstring(t *testing.T) {
	db := openTestDB(t)
	seedSearchFixture(t, db)
	svc := NewService(db, zap.NewNop(), 5)
	ctx := context.Background()

	hits, err := svc.ByName(ctx, "XYLOTRIPTANOL", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)

	// Synonym-Substring greift erst, wenn der Exakttreffer leer bleibt.
	hits, err = svc.ByName(ctx, "riptoxylo", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)
}

func TestByDiseaseReturnsMatchedName(t *testing.T) {
	db := openTestDB(t)
	seedSearchFixture(t, db)
	svc := NewService(db, zap.NewNop(), 5)

	hits, err := svc.ByDisease(context.Background(), "xylotriptanolosis", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)
	assert.Equal(t, "Xylotriptanolosis", hits[0].Matched)
}

func TestByBiofluidMatchesCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	seedSearchFixture(t, db)
	svc := NewService(db, zap.NewNop(), 5)

	hits, err := svc.ByBiofluid(context.Background(), "cerebral testfluid", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HMDBSEARCH01", hits[0].HMDBID)
}

func TestByHMDBIDUnknownIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db, zap.NewNop(), 5)

	m, err := svc.ByHMDBID(context.Background(), "HMDB_DOES_NOT_EXIST")
	require.NoError(t, err)
	assert.Nil(t, m)
}
