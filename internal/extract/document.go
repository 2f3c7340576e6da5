// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// JATS element and attribute names the extractor relies on.
const (
	tagPubID     = "pub-id"
	tagRef       = "ref"
	tagParagraph = "p"
	tagXref      = "xref"
	attrID       = "id"
	attrRid      = "rid"
)

var (
	// ErrEmptyDocument is returned when the markup has no root element.
	ErrEmptyDocument = errors.New("document has no root element")

	// ErrNoReference is returned when no reference entry binds the target.
	ErrNoReference = errors.New("no reference found")

	// ErrNoContext is returned when no paragraph cites the local marker.
	ErrNoContext = errors.New("no citation context found")
)

// Document is a parsed full-text article.
type Document struct {
	root *etree.Element
}

// Parse reads JATS XML from r. Named HTML entities are accepted so that
// documents relying on a DTD that is not available still parse.
func Parse(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.Entity = xml.HTMLEntity
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDocument
	}
	return &Document{root: root}, nil
}

// ParseFile parses the document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Resolution is the outcome of matching a target identifier against the
// document's reference list.
type Resolution struct {
	// Marker is the local marker selected for passage collection.
	Marker string

	// Candidates lists the markers of every matching reference entry in
	// document order.
	Candidates []string
}

// Ambiguous reports whether more than one reference entry bound the target.
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// SelectLast picks the marker of the last matching reference entry. When a
// document lists the target more than once, the later entry wins; the
// passage search is not widened to the other markers.
func SelectLast(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	return candidates[len(candidates)-1]
}

// ResolveReference finds every reference entry whose pub-id equals target
// and selects one local marker with SelectLast. It returns ErrNoReference
// when nothing matches.
func (d *Document) ResolveReference(target string) (Resolution, error) {
	target = strings.TrimSpace(target)

	var (
		candidates []string
		last       *etree.Element
	)
	walk(d.root, func(e *etree.Element) {
		if e.Tag != tagPubID || strings.TrimSpace(textOf(e)) != target {
			return
		}
		entry := referenceEntry(e)
		// A citation carrying the same pub-id twice is still one entry.
		if entry == nil || entry == last {
			return
		}
		last = entry
		if id := entry.SelectAttrValue(attrID, ""); id != "" {
			candidates = append(candidates, id)
		}
	})

	if len(candidates) == 0 {
		return Resolution{}, ErrNoReference
	}
	return Resolution{Marker: SelectLast(candidates), Candidates: candidates}, nil
}

// referenceEntry returns the element that declares the local marker for a
// pub-id: the enclosing <ref>, or the pub-id's grandparent when the
// reference list does not use <ref> elements.
func referenceEntry(pubID *etree.Element) *etree.Element {
	for p := pubID.Parent(); p != nil; p = p.Parent() {
		if p.Tag == tagRef {
			return p
		}
	}
	if parent := pubID.Parent(); parent != nil {
		return parent.Parent()
	}
	return nil
}

// Passage is a paragraph that cites the local marker.
type Passage struct {
	// Seq is the paragraph's position among citing paragraphs, from 0.
	Seq int

	// Text is the paragraph's full text.
	Text string

	// Markers holds the literal text of each in-text marker in the
	// paragraph that points at the local marker, in document order.
	Markers []string
}

// Passages returns every paragraph, in document order, that contains an
// in-text marker pointing at marker. Nested paragraphs are visited in their
// own right. It returns ErrNoContext when no paragraph qualifies.
func (d *Document) Passages(marker string) ([]Passage, error) {
	var passages []Passage
	walk(d.root, func(p *etree.Element) {
		if p.Tag != tagParagraph {
			return
		}
		var markers []string
		walk(p, func(x *etree.Element) {
			if x.Tag == tagXref && refersTo(x, marker) {
				markers = append(markers, textOf(x))
			}
		})
		if len(markers) == 0 {
			return
		}
		passages = append(passages, Passage{
			Seq:     len(passages),
			Text:    textOf(p),
			Markers: markers,
		})
	})

	if len(passages) == 0 {
		return nil, ErrNoContext
	}
	return passages, nil
}

// refersTo reports whether an xref's rid names marker. JATS allows rid to
// list several ids separated by spaces.
func refersTo(xref *etree.Element, marker string) bool {
	for _, rid := range strings.Fields(xref.SelectAttrValue(attrRid, "")) {
		if rid == marker {
			return true
		}
	}
	return false
}

// walk visits e and its descendant elements in document order.
func walk(e *etree.Element, fn func(*etree.Element)) {
	fn(e)
	for _, child := range e.ChildElements() {
		walk(child, fn)
	}
}

// textOf concatenates all character data below e.
func textOf(e *etree.Element) string {
	var b strings.Builder
	appendText(&b, e)
	return b.String()
}

func appendText(b *strings.Builder, e *etree.Element) {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			appendText(b, t)
		}
	}
}
