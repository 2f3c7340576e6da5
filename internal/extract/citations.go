// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract finds the citation contexts of a target publication in a
// full-text JATS article.
//
// Extraction runs in four steps: resolve the target's identifier to the
// article's local reference marker, collect the paragraphs that cite that
// marker, capture the literal marker text once, and isolate the sentence in
// each paragraph that carries it.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// Outcome summarises how extraction for one article ended.
type Outcome string

const (
	OutcomeContexts    Outcome = "contexts"
	OutcomeNoReference Outcome = "no-reference"
	OutcomeNoContext   Outcome = "no-context"
)

// Result holds the records and diagnostics produced for one article.
type Result struct {
	Outcome Outcome

	// Resolution is the reference match; zero when Outcome is OutcomeNoReference.
	Resolution Resolution

	// CitationStr is the canonical marker text; empty unless Outcome is
	// OutcomeContexts.
	CitationStr string

	Records     []types.ContextRecord
	Diagnostics []types.Diagnostic
}

func (r *Result) diag(citing string, kind types.DiagnosticKind, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, types.Diagnostic{
		CitingPMID: citing,
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Extractor turns a document into citation context records.
type Extractor struct {
	splitter Splitter
}

// NewExtractor returns an Extractor that isolates sentences with splitter.
func NewExtractor(splitter Splitter) *Extractor {
	return &Extractor{splitter: splitter}
}

// Extract produces one record per paragraph of doc that cites target.
// citing only tags the records. Absence of a reference or of citing
// paragraphs is reported through Result.Outcome and a diagnostic, never as
// an error.
func (x *Extractor) Extract(doc *Document, target, citing string) Result {
	var res Result

	resolution, err := doc.ResolveReference(target)
	if errors.Is(err, ErrNoReference) {
		res.Outcome = OutcomeNoReference
		res.diag(citing, types.DiagNoReference, "no reference found for %s", target)
		return res
	}
	res.Resolution = resolution
	if resolution.Ambiguous() {
		res.diag(citing, types.DiagMultipleReferences,
			"multiple references matched %s (%s); using the last, %s",
			target, strings.Join(resolution.Candidates, ", "), resolution.Marker)
	}

	passages, err := doc.Passages(resolution.Marker)
	if errors.Is(err, ErrNoContext) {
		res.Outcome = OutcomeNoContext
		res.diag(citing, types.DiagNoContext, "no citation context found for marker %s", resolution.Marker)
		return res
	}

	citation := canonicalMarker(passages)
	res.CitationStr = citation
	res.Outcome = OutcomeContexts

	for _, p := range passages {
		res.Records = append(res.Records, types.ContextRecord{
			CitingPMID:  citing,
			CitedPMID:   target,
			InPaperID:   p.Seq,
			CitationStr: citation,
			Paragraph:   p.Text,
			Context:     ContextSentence(x.splitter.Split(p.Text), citation),
		})
	}
	return res
}

// canonicalMarker is the text of the first in-text marker of the first
// citing paragraph. It is used for every paragraph of the article, even
// where a later paragraph renders the marker differently.
func canonicalMarker(passages []Passage) string {
	if len(passages) == 0 || len(passages[0].Markers) == 0 {
		return ""
	}
	return passages[0].Markers[0]
}
