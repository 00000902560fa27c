package hmdb

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"metabo-hand/models"
)

// ErrMissingAccession: der Datensatz hat keinen natürlichen Schlüssel
// (accession bzw. uniprot_id) und wird übersprungen. Das ist ein
// Datenqualitätssignal, kein fataler Fehler.
var ErrMissingAccession = errors.New("hmdb: record without natural key")

// MetaboliteRecord ist ein extrahierter Metabolit samt seiner noch nicht
// aufgelösten Beziehungen. Die Fremdschlüssel werden erst beim Batch-Commit
// über die natürlichen Schlüssel aufgelöst.
type MetaboliteRecord struct {
	Metabolite models.Metabolite

	Pathways       []models.Pathway
	Diseases       []models.Disease
	Concentrations []models.Concentration
	Properties     []models.PredictedProperty

	// UniProt-IDs aus protein_associations.
	ProteinAccessions []string
}

// ProteinRecord ist ein extrahiertes Protein mit den Accessions seiner
// assoziierten Metaboliten.
type ProteinRecord struct {
	Protein models.Protein

	MetaboliteAccessions []string
}

// ExtractMetabolite baut aus einem abgeschlossenen <metabolite>-Teilbaum
// einen MetaboliteRecord. Fehlende optionale Felder bleiben leer, nicht
// parsebare Zahlen werden nil. Fehlt die Accession, kommt
// ErrMissingAccession zurück.
func ExtractMetabolite(el *Element) (*MetaboliteRecord, error) {
	accession := el.ChildText("accession")
	if accession == "" {
		return nil, ErrMissingAccession
	}

	rec := &MetaboliteRecord{
		Metabolite: models.Metabolite{
			HMDBID:              accession,
			Name:                el.ChildText("name"),
			ChemicalFormula:     el.ChildText("chemical_formula"),
			Status:              el.ChildText("status"),
			AvgMolecularWeight:  parseFloat(el.ChildText("average_molecular_weight")),
			MonoMolecularWeight: parseFloat(el.ChildText("monoisotopic_molecular_weight")),
			IUPACName:           el.ChildText("iupac_name"),
			SMILES:              el.ChildText("smiles"),
			InChI:               el.ChildText("inchi"),
			InChIKey:            el.ChildText("inchikey"),
			Synonyms:            datatypes.NewJSONSlice(el.ChildTexts("synonyms", "synonym")),
			SourceCreated:       el.ChildText("creation_date"),
			SourceUpdated:       el.ChildText("update_date"),
			SourceVersion:       el.ChildText("version"),
		},
	}

	if tax := el.Find("taxonomy"); tax != nil {
		m := &rec.Metabolite
		m.TaxonomyKingdom = tax.ChildText("kingdom")
		m.TaxonomySuperclass = tax.ChildText("super_class")
		if m.TaxonomySuperclass == "" {
			m.TaxonomySuperclass = tax.ChildText("superclass")
		}
		m.TaxonomyClass = tax.ChildText("class")
		m.TaxonomySubclass = tax.ChildText("subclass")
		m.TaxonomyDirectParent = tax.ChildText("direct_parent")
		m.AlternativeParents = datatypes.NewJSONSlice(tax.ChildTexts("alternative_parents", "alternative_parent"))
	}

	// Lokationslisten liegen unter biological_properties, ebenso die Pathways.
	if bio := el.Find("biological_properties"); bio != nil {
		m := &rec.Metabolite
		m.CellularLocations = datatypes.NewJSONSlice(bio.ChildTexts("cellular_locations", "cellular"))
		m.BiospecimenLocations = datatypes.NewJSONSlice(bio.ChildTexts("biospecimen_locations", "biospecimen"))
		m.TissueLocations = datatypes.NewJSONSlice(bio.ChildTexts("tissue_locations", "tissue"))

		for _, pwy := range bio.FindAll("pathways", "pathway") {
			name := pwy.ChildText("name")
			if name == "" {
				continue
			}
			rec.Pathways = append(rec.Pathways, models.Pathway{
				Name:    name,
				KeggID:  pwy.ChildText("kegg_map_id"),
				SmpdbID: pwy.ChildText("smpdb_id"),
			})
		}
	}

	for _, dis := range el.FindAll("diseases", "disease") {
		name := dis.ChildText("name")
		if name == "" {
			continue
		}
		ref := dis.ChildText("references")
		if ref == "" {
			ref = dis.ChildText("references", "reference", "reference_text")
		}
		rec.Diseases = append(rec.Diseases, models.Disease{Name: name, Reference: ref})
	}

	rec.Concentrations = append(rec.Concentrations, extractConcentrations(el, "normal_concentrations", "normal")...)
	rec.Concentrations = append(rec.Concentrations, extractConcentrations(el, "abnormal_concentrations", "abnormal")...)

	for _, prop := range el.FindAll("predicted_properties", "property") {
		kind := prop.ChildText("kind")
		if kind == "" {
			continue
		}
		source := prop.ChildText("source")
		if source == "" {
			source = "Unknown"
		}
		rec.Properties = append(rec.Properties, models.PredictedProperty{
			Kind:   strings.ToLower(kind),
			Value:  prop.ChildText("value"),
			Source: source,
		})
	}

	for _, prot := range el.FindAll("protein_associations", "protein") {
		if id := prot.ChildText("uniprot_id"); id != "" {
			rec.ProteinAccessions = append(rec.ProteinAccessions, id)
		}
	}

	return rec, nil
}

// ExtractProtein baut aus einem abgeschlossenen <protein>-Teilbaum einen
// ProteinRecord. Fehlt die uniprot_id, kommt ErrMissingAccession zurück.
func ExtractProtein(el *Element) (*ProteinRecord, error) {
	uniprot := el.ChildText("uniprot_id")
	if uniprot == "" {
		return nil, ErrMissingAccession
	}

	rec := &ProteinRecord{
		Protein: models.Protein{
			UniprotID: uniprot,
			Name:      el.ChildText("name"),
			GeneName:  el.ChildText("gene_name"),
		},
	}

	for _, met := range el.FindAll("metabolite_associations", "metabolite") {
		if acc := met.ChildText("accession"); acc != "" {
			rec.MetaboliteAccessions = append(rec.MetaboliteAccessions, acc)
		}
	}

	return rec, nil
}

func extractConcentrations(el *Element, section, ctype string) []models.Concentration {
	var out []models.Concentration
	for _, con := range el.FindAll(section, "concentration") {
		out = append(out, models.Concentration{
			Type:             ctype,
			Biofluid:         con.ChildText("biospecimen"),
			Value:            con.ChildText("concentration_value"),
			SubjectAge:       con.ChildText("subject_age"),
			SubjectSex:       con.ChildText("subject_sex"),
			SubjectCondition: con.ChildText("subject_condition"),
		})
	}
	return out
}

// parseFloat gibt nil zurück, wenn der Export keinen gültigen Zahlenwert
// liefert. Ein kaputtes Molekulargewicht ist kein Grund, den Datensatz zu
// verwerfen.
func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
