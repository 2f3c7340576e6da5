// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// SummaryPath returns the run summary path for target inside dir.
func SummaryPath(dir, target string) string {
	return filepath.Join(dir, "S"+target+".yaml")
}

// WriteSummary replaces S<target>.yaml with s. The file is written to a
// temporary name first and renamed into place.
func WriteSummary(dir string, s types.RunSummary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := SummaryPath(dir, s.Target)
	tmp, err := os.CreateTemp(dir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing summary: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming summary to %s: %w", path, err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (types.RunSummary, error) {
	var s types.RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading summary %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return s, nil
}
