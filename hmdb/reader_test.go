package hmdb

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaboliteDoc = `<?xml version="1.0" encoding="UTF-8"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <accession>HMDB0000122</accession>
    <name>D-Glucose</name>
  </metabolite>
  <metabolite>
    <accession>HMDB0000158</accession>
    <name>L-Tyrosine</name>
  </metabolite>
</hmdb>`

const proteinDoc = `<?xml version="1.0" encoding="UTF-8"?>
<hmdb xmlns="http://www.hmdb.ca">
  <protein>
    <uniprot_id>P21397</uniprot_id>
    <name>Amine oxidase A</name>
    <metabolite_associations>
      <metabolite>
        <accession>HMDB0000122</accession>
        <name>D-Glucose</name>
      </metabolite>
    </metabolite_associations>
  </protein>
</hmdb>`

func TestReaderYieldsRecordsInDocumentOrder(t *testing.T) {
	r := NewReader(strings.NewReader(metaboliteDoc))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "metabolite", first.Tag)
	assert.Equal(t, "HMDB0000122", first.ChildText("accession"))

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "HMDB0000158", second.ChildText("accession"))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderTreatsNestedMetaboliteAsSubtreeContent(t *testing.T) {
	r := NewReader(strings.NewReader(proteinDoc))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "protein", rec.Tag)
	assert.Equal(t, "P21397", rec.ChildText("uniprot_id"))

	// Das verschachtelte <metabolite> gehört zum Protein-Teilbaum und
	// erscheint nicht als eigener Datensatz.
	nested := rec.Find("metabolite_associations", "metabolite")
	require.NotNil(t, nested)
	assert.Equal(t, "HMDB0000122", nested.ChildText("accession"))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderIgnoresForeignNamespace(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://example.org/not-hmdb">
  <metabolite>
    <accession>HMDB0000122</accession>
  </metabolite>
</hmdb>`

	r := NewReader(strings.NewReader(doc))
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestReaderReportsParseFailureOnTruncatedStream(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <accession>HMDB00`

	r := NewReader(strings.NewReader(doc))
	_, err := r.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseFailure)
}

func TestElementHelpers(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <accession>HMDB0000001</accession>
    <synonyms>
      <synonym> 1-Methylhistidine </synonym>
      <synonym>Pi-methylhistidine</synonym>
      <synonym>Pi-methylhistidine</synonym>
      <synonym></synonym>
    </synonyms>
  </metabolite>
</hmdb>`

	r := NewReader(strings.NewReader(doc))
	el, err := r.Next()
	require.NoError(t, err)

	assert.Nil(t, el.Find("taxonomy"))
	assert.Equal(t, "", el.ChildText("taxonomy", "kingdom"))

	// Duplikate bleiben erhalten, Texte sind getrimmt, Leereinträge fallen weg.
	assert.Equal(t,
		[]string{"1-Methylhistidine", "Pi-methylhistidine", "Pi-methylhistidine"},
		el.ChildTexts("synonyms", "synonym"))
}
