// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus builds the worklist of citing articles that have full text
// in the PMC open-access subset.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// Column names in oa_file_list.csv that the join relies on.
const (
	pmidColumn = "PMID"
	fileColumn = "File"
)

// ErrMissingColumn is returned when the metadata table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Worklist is the result of joining a citing-article report with the OA
// metadata table.
type Worklist struct {
	// Items are the citing articles with an archive, in report order.
	Items []types.WorklistItem

	// Candidates is the number of identifiers in the report.
	Candidates int
}

// Coverage is the fraction of report identifiers that have an archive. It
// is 0 for an empty report.
func (w Worklist) Coverage() float64 {
	if w.Candidates == 0 {
		return 0
	}
	return float64(len(w.Items)) / float64(w.Candidates)
}

// LoadReport returns the identifiers in the first column of an iCite report.
// Spreadsheets (.xlsx) are read from their first sheet; anything else is
// read as CSV. The first row is a header and is skipped, as are blank cells.
func LoadReport(path string) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readSpreadsheet(path)
	default:
		rows, err = readCSVFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var ids []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := normalizeID(row[0]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadMetadata reads oa_file_list.csv and maps each PMID to its archive
// location. The PMID and File columns are found by header name. Rows
// without a PMID are skipped; the first row for a PMID wins.
func LoadMetadata(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	defer f.Close()

	m, err := DecodeMetadata(f)
	if err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	return m, nil
}

// DecodeMetadata is LoadMetadata over an already open stream.
func DecodeMetadata(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, pmidColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	pmidIdx, fileIdx := columnIndex(header, pmidColumn), columnIndex(header, fileColumn)
	if pmidIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, pmidColumn)
	}
	if fileIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, fileColumn)
	}

	locations := make(map[string]string)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if pmidIdx >= len(row) || fileIdx >= len(row) {
			continue
		}
		pmid := normalizeID(row[pmidIdx])
		if pmid == "" {
			continue
		}
		if _, seen := locations[pmid]; !seen {
			locations[pmid] = strings.TrimSpace(row[fileIdx])
		}
	}
	return locations, nil
}

// Join keeps the candidates that have an archive location, in candidate
// order. Repeated candidates stay repeated.
func Join(candidates []string, locations map[string]string) Worklist {
	wl := Worklist{Candidates: len(candidates)}
	for _, id := range candidates {
		if loc, ok := locations[id]; ok && loc != "" {
			wl.Items = append(wl.Items, types.WorklistItem{PMID: id, File: loc})
		}
	}
	return wl
}

// columnIndex finds name in header, ignoring case and a UTF-8 BOM.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// normalizeID trims an identifier and drops the ".0" suffix spreadsheets
// add to whole numbers.
func normalizeID(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}
