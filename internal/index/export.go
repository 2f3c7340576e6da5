// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one context in an export file.
type ExportEntry struct {
	Target      string `json:"cited_pmid" yaml:"cited_pmid"`
	Citing      string `json:"citing_pmid" yaml:"citing_pmid"`
	Seq         int    `json:"in_paper_id" yaml:"in_paper_id"`
	CitationStr string `json:"citation_str" yaml:"citation_str"`
	Context     string `json:"cit_contxt" yaml:"cit_contxt"`
	Paragraph   string `json:"paragraph" yaml:"paragraph"`
}

const exportLimit = 1000000

// ExportYAML writes the contexts matching opts to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions, path string) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(path, data)
}

// ExportJSON writes the contexts matching opts to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions, path string) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(path, data)
}

func writeExport(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export %s: %w", path, err)
	}
	return nil
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			Target:      r.CitedPMID,
			Citing:      r.CitingPMID,
			Seq:         r.InPaperID,
			CitationStr: r.CitationStr,
			Context:     r.Context,
			Paragraph:   r.Paragraph,
		}
	}
	return entries, nil
}
