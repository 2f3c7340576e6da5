// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TableColumns is the fixed column schema of a per-target result table.
var TableColumns = []string{"citing_pmid", "cited_pmid", "in_paper_id", "citation_str", "paragraph", "cit_contxt"}

// WorklistItem pairs a citing article with the location of its full-text
// archive, relative to the fetch base URL.
type WorklistItem struct {
	PMID string `json:"pmid" yaml:"pmid"`
	File string `json:"file" yaml:"file"`
}

// ContextRecord is one paragraph of a citing article that cites the target,
// with the sentence that carries the citation marker.
type ContextRecord struct {
	// CitingPMID identifies the article doing the citing.
	CitingPMID string `json:"citing_pmid" yaml:"citing_pmid"`

	// CitedPMID is the target identifier.
	CitedPMID string `json:"cited_pmid" yaml:"cited_pmid"`

	// InPaperID is the zero-based position of the paragraph among the
	// paragraphs of the citing article that cite the target.
	InPaperID int `json:"in_paper_id" yaml:"in_paper_id"`

	// CitationStr is the literal in-text marker, e.g. "(1)" or "Smith et al., 2020".
	CitationStr string `json:"citation_str" yaml:"citation_str"`

	// Paragraph is the full paragraph text.
	Paragraph string `json:"paragraph" yaml:"paragraph"`

	// Context is the sentence containing CitationStr, or "" when no single
	// sentence contains it.
	Context string `json:"cit_contxt" yaml:"cit_contxt"`
}

// DiagnosticKind classifies an event written to the per-target log.
type DiagnosticKind string

const (
	DiagNoReference        DiagnosticKind = "no-reference"
	DiagMultipleReferences DiagnosticKind = "multiple-references"
	DiagNoContext          DiagnosticKind = "no-context"
	DiagFetchFailed        DiagnosticKind = "fetch-failed"
	DiagDocumentFailed     DiagnosticKind = "document-failed"
	DiagRecordFailed       DiagnosticKind = "record-failed"
)

// Diagnostic is one line of the per-target log.
type Diagnostic struct {
	CitingPMID string         `json:"citing_pmid" yaml:"citing_pmid"`
	Kind       DiagnosticKind `json:"kind" yaml:"kind"`
	Message    string         `json:"message" yaml:"message"`
}
