// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// WorklistFile is the name of the joined worklist inside the data directory.
const WorklistFile = "urls.csv"

// WriteWorklist writes items to path as CSV with a PMID,File header,
// replacing any previous file.
func WriteWorklist(path string, items []types.WorklistItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating worklist %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Write([]string{pmidColumn, fileColumn})
	for _, it := range items {
		w.Write([]string{it.PMID, it.File})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("writing worklist %s: %w", path, err)
	}
	return f.Close()
}

// ReadWorklist reads a worklist written by WriteWorklist, keeping its
// order and repeats.
func ReadWorklist(path string) ([]types.WorklistItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading worklist %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading worklist %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading worklist %s: %w: %s", path, ErrMissingColumn, pmidColumn)
	}
	pmidIdx, fileIdx := columnIndex(rows[0], pmidColumn), columnIndex(rows[0], fileColumn)
	if pmidIdx < 0 || fileIdx < 0 {
		return nil, fmt.Errorf("reading worklist %s: %w: %s,%s", path, ErrMissingColumn, pmidColumn, fileColumn)
	}

	var items []types.WorklistItem
	for _, row := range rows[1:] {
		pmid := normalizeID(row[pmidIdx])
		if pmid == "" {
			continue
		}
		items = append(items, types.WorklistItem{PMID: pmid, File: strings.TrimSpace(row[fileIdx])})
	}
	return items, nil
}
