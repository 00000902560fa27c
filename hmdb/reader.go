package hmdb

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrParseFailure kennzeichnet einen XML-Strom, dessen Cursor nicht mehr
// fortgesetzt werden kann. Der Import der betroffenen Datei bricht ab,
// bereits committete Batches bleiben bestehen.
var ErrParseFailure = errors.New("hmdb: unrecoverable xml stream")

// recordTags sind die Top-Level-Datensätze der Exportdateien.
var recordTags = map[string]bool{
	"metabolite": true,
	"protein":    true,
}

// Reader liefert abgeschlossene <metabolite>- und <protein>-Teilbäume in
// Dokumentreihenfolge, ohne das Gesamtdokument zu materialisieren. Nach
// jedem Next ist nur der aktuelle Teilbaum im Speicher; der Verbrauch ist
// damit durch die Datensatzgröße begrenzt, nicht durch die Dateigröße.
type Reader struct {
	dec       *xml.Decoder
	namespace string
	depth     int
}

// NewReader erstellt einen Reader über einem XML-Bytestrom.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	// Die Exporte enthalten vereinzelt unmaskierte Entities.
	dec.Strict = false
	return &Reader{dec: dec, namespace: Namespace}
}

// Next gibt den nächsten Datensatz zurück, io.EOF am Ende des Dokuments.
// Jeder andere Fehler wickelt ErrParseFailure ein.
func (r *Reader) Next() (*Element, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, r.fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			// Datensätze liegen direkt unter dem Wurzelelement. Tiefer
			// verschachtelte Vorkommen (z.B. <metabolite> in den
			// metabolite_associations eines Proteins) sind Teilbauminhalt.
			if r.depth == 1 && recordTags[t.Name.Local] && t.Name.Space == r.namespace {
				el, err := r.readSubtree(t)
				if err != nil {
					return nil, err
				}
				return el, nil
			}
			r.depth++
		case xml.EndElement:
			r.depth--
		}
	}
}

// readSubtree konsumiert den Teilbaum des gestarteten Elements bis zu
// seinem schließenden Tag.
func (r *Reader) readSubtree(start xml.StartElement) (*Element, error) {
	el := &Element{Tag: start.Name.Local}
	if len(start.Attr) > 0 {
		el.Attrs = make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			el.Attrs[a.Name.Local] = a.Value
		}
	}

	var text strings.Builder
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, r.fail(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := r.readSubtree(t)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			el.Text = strings.TrimSpace(text.String())
			return el, nil
		case xml.CharData:
			text.Write(t)
		}
	}
}

func (r *Reader) fail(err error) error {
	return fmt.Errorf("%w: byte %d: %v", ErrParseFailure, r.dec.InputOffset(), err)
}
