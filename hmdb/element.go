// Package hmdb liest HMDB-XML-Exporte als Strom abgeschlossener Datensätze
// und extrahiert daraus typisierte Entitäten.
package hmdb

import "strings"

// Namespace ist der XML-Namespace der HMDB-Exportdateien.
const Namespace = "http://www.hmdb.ca"

// Element ist ein abgeschlossener XML-Teilbaum: Tag (lokaler Name ohne
// Namespace), Attribute, getrimmter Text und Kindelemente in
// Dokumentreihenfolge.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Children []*Element
}

// Find folgt dem Pfad von Kind-Tags und gibt das erste passende Element
// zurück, nil wenn ein Segment fehlt.
func (e *Element) Find(path ...string) *Element {
	cur := e
	for _, tag := range path {
		var next *Element
		for _, c := range cur.Children {
			if c.Tag == tag {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// FindAll folgt dem Pfad bis zum vorletzten Segment und gibt alle Kinder
// mit dem letzten Tag zurück, in Dokumentreihenfolge.
func (e *Element) FindAll(path ...string) []*Element {
	if len(path) == 0 {
		return nil
	}
	parent := e
	if len(path) > 1 {
		parent = e.Find(path[:len(path)-1]...)
		if parent == nil {
			return nil
		}
	}
	last := path[len(path)-1]
	var out []*Element
	for _, c := range parent.Children {
		if c.Tag == last {
			out = append(out, c)
		}
	}
	return out
}

// ChildText gibt den Text des ersten Elements unter dem Pfad zurück,
// Leerstring wenn das Element fehlt.
func (e *Element) ChildText(path ...string) string {
	c := e.Find(path...)
	if c == nil {
		return ""
	}
	return c.Text
}

// ChildTexts sammelt die nicht-leeren Texte aller Elemente unter dem Pfad.
// Duplikate bleiben erhalten, die Reihenfolge der Quelle auch.
func (e *Element) ChildTexts(path ...string) []string {
	var out []string
	for _, c := range e.FindAll(path...) {
		if t := strings.TrimSpace(c.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
