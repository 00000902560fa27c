package hmdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseRecord(t *testing.T, doc string) *Element {
	t.Helper()
	r := NewReader(strings.NewReader(doc))
	el, err := r.Next()
	require.NoError(t, err)
	return el
}

func TestExtractMetaboliteFullRecord(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <accession>HMDB0000122</accession>
    <name>D-Glucose</name>
    <chemical_formula>C6H12O6</chemical_formula>
    <average_molecular_weight>180.1559</average_molecular_weight>
    <monoisotopic_molecular_weight>180.063388116</monoisotopic_molecular_weight>
    <iupac_name>(3R,4S,5S,6R)-6-(hydroxymethyl)oxane-2,3,4,5-tetrol</iupac_name>
    <smiles>OCC1OC(O)C(O)C(O)C1O</smiles>
    <synonyms>
      <synonym>Dextrose</synonym>
      <synonym>Grape sugar</synonym>
    </synonyms>
    <taxonomy>
      <kingdom>Organic compounds</kingdom>
      <super_class>Organic oxygen compounds</super_class>
      <class>Organooxygen compounds</class>
      <direct_parent>Hexoses</direct_parent>
      <alternative_parents>
        <alternative_parent>Oxanes</alternative_parent>
      </alternative_parents>
    </taxonomy>
    <biological_properties>
      <cellular_locations>
        <cellular>Cytoplasm</cellular>
      </cellular_locations>
      <biospecimen_locations>
        <biospecimen>Blood</biospecimen>
        <biospecimen>Urine</biospecimen>
      </biospecimen_locations>
      <pathways>
        <pathway>
          <name>Glycolysis</name>
          <smpdb_id>SMP00031</smpdb_id>
          <kegg_map_id>map00010</kegg_map_id>
        </pathway>
        <pathway>
          <name>Gluconeogenesis</name>
        </pathway>
      </pathways>
    </biological_properties>
    <normal_concentrations>
      <concentration>
        <biospecimen>Blood</biospecimen>
        <concentration_value>5.0 mM</concentration_value>
        <subject_age>Adult</subject_age>
      </concentration>
    </normal_concentrations>
    <abnormal_concentrations>
      <concentration>
        <biospecimen>Blood</biospecimen>
        <concentration_value>12.0 mM</concentration_value>
        <subject_condition>Diabetes</subject_condition>
      </concentration>
    </abnormal_concentrations>
    <predicted_properties>
      <property>
        <kind>LogP</kind>
        <value>-2.9</value>
        <source>ALOGPS</source>
      </property>
      <property>
        <kind>Polarizability</kind>
        <value>15.58</value>
      </property>
    </predicted_properties>
    <diseases>
      <disease>
        <name>Diabetes mellitus</name>
        <references>
          <reference>
            <reference_text>Sone H et al. (2001)</reference_text>
          </reference>
        </references>
      </disease>
    </diseases>
    <protein_associations>
      <protein>
        <uniprot_id>P21397</uniprot_id>
      </protein>
      <protein>
        <uniprot_id>P35558</uniprot_id>
      </protein>
    </protein_associations>
  </metabolite>
</hmdb>`

	rec, err := ExtractMetabolite(parseRecord(t, doc))
	require.NoError(t, err)

	m := rec.Metabolite
	assert.Equal(t, "HMDB0000122", m.HMDBID)
	assert.Equal(t, "D-Glucose", m.Name)
	assert.Equal(t, "C6H12O6", m.ChemicalFormula)
	require.NotNil(t, m.AvgMolecularWeight)
	assert.InDelta(t, 180.1559, *m.AvgMolecularWeight, 1e-9)
	require.NotNil(t, m.MonoMolecularWeight)
	assert.Equal(t, []string{"Dextrose", "Grape sugar"}, []string(m.Synonyms))

	assert.Equal(t, "Organic compounds", m.TaxonomyKingdom)
	assert.Equal(t, "Organic oxygen compounds", m.TaxonomySuperclass)
	assert.Equal(t, "Hexoses", m.TaxonomyDirectParent)
	assert.Equal(t, []string{"Oxanes"}, []string(m.AlternativeParents))

	assert.Equal(t, []string{"Cytoplasm"}, []string(m.CellularLocations))
	assert.Equal(t, []string{"Blood", "Urine"}, []string(m.BiospecimenLocations))

	require.Len(t, rec.Pathways, 2)
	assert.Equal(t, "Glycolysis", rec.Pathways[0].Name)
	assert.Equal(t, "map00010", rec.Pathways[0].KeggID)
	assert.Equal(t, "SMP00031", rec.Pathways[0].SmpdbID)
	assert.Equal(t, "", rec.Pathways[1].KeggID)

	require.Len(t, rec.Diseases, 1)
	assert.Equal(t, "Diabetes mellitus", rec.Diseases[0].Name)
	assert.Equal(t, "Sone H et al. (2001)", rec.Diseases[0].Reference)

	require.Len(t, rec.Concentrations, 2)
	assert.Equal(t, "normal", rec.Concentrations[0].Type)
	assert.Equal(t, "5.0 mM", rec.Concentrations[0].Value)
	assert.Equal(t, "abnormal", rec.Concentrations[1].Type)
	assert.Equal(t, "Diabetes", rec.Concentrations[1].SubjectCondition)

	require.Len(t, rec.Properties, 2)
	assert.Equal(t, "logp", rec.Properties[0].Kind)
	assert.Equal(t, "ALOGPS", rec.Properties[0].Source)
	assert.Equal(t, "Unknown", rec.Properties[1].Source)

	assert.Equal(t, []string{"P21397", "P35558"}, rec.ProteinAccessions)
}

func TestExtractMetaboliteMinimalRecord(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <accession>HMDB0000999</accession>
    <average_molecular_weight>Not Available</average_molecular_weight>
  </metabolite>
</hmdb>`

	rec, err := ExtractMetabolite(parseRecord(t, doc))
	require.NoError(t, err)

	assert.Equal(t, "HMDB0000999", rec.Metabolite.HMDBID)
	assert.Nil(t, rec.Metabolite.AvgMolecularWeight)
	assert.Nil(t, rec.Metabolite.MonoMolecularWeight)
	assert.Empty(t, rec.Pathways)
	assert.Empty(t, rec.Diseases)
	assert.Empty(t, rec.Concentrations)
	assert.Empty(t, rec.ProteinAccessions)
}

func TestExtractMetaboliteWithoutAccession(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <metabolite>
    <name>Nameless</name>
  </metabolite>
</hmdb>`

	_, err := ExtractMetabolite(parseRecord(t, doc))
	assert.ErrorIs(t, err, ErrMissingAccession)
}

func TestExtractProtein(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <protein>
    <uniprot_id>P21397</uniprot_id>
    <name>Amine oxidase A</name>
    <gene_name>MAOA</gene_name>
    <metabolite_associations>
      <metabolite>
        <accession>HMDB0000122</accession>
      </metabolite>
      <metabolite>
        <accession>HMDB0000158</accession>
      </metabolite>
    </metabolite_associations>
  </protein>
</hmdb>`

	rec, err := ExtractProtein(parseRecord(t, doc))
	require.NoError(t, err)

	assert.Equal(t, "P21397", rec.Protein.UniprotID)
	assert.Equal(t, "Amine oxidase A", rec.Protein.Name)
	assert.Equal(t, "MAOA", rec.Protein.GeneName)
	assert.Equal(t, []string{"HMDB0000122", "HMDB0000158"}, rec.MetaboliteAccessions)
}

func TestExtractProteinWithoutUniprotID(t *testing.T) {
	doc := `<?xml version="1.0"?>
<hmdb xmlns="http://www.hmdb.ca">
  <protein>
    <name>Nameless enzyme</name>
  </protein>
</hmdb>`

	_, err := ExtractProtein(parseRecord(t, doc))
	assert.ErrorIs(t, err, ErrMissingAccession)
}
