// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sink persists citation context records and diagnostics for one
// target publication. Both files only ever grow: records and log lines are
// appended and flushed one at a time so that a crash loses at most the
// record being written.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// TablePath returns the result table path for target inside dir.
func TablePath(dir, target string) string {
	return filepath.Join(dir, "A"+target+".csv")
}

// LogPath returns the diagnostic log path for target inside dir.
func LogPath(dir, target string) string {
	return filepath.Join(dir, "L"+target+".txt")
}

// Table appends ContextRecords to A<target>.csv.
type Table struct {
	f *os.File
	w *csv.Writer
}

// OpenTable opens the result table for target, creating it with the column
// header when it does not exist or is empty.
func OpenTable(dir, target string) (*Table, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path := TablePath(dir, target)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening result table %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat result table %s: %w", path, err)
	}

	t := &Table{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := t.write(types.TableColumns); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header to %s: %w", path, err)
		}
	}
	return t, nil
}

// Append writes rec as one row and syncs it to disk before returning.
func (t *Table) Append(rec types.ContextRecord) error {
	return t.write([]string{
		rec.CitingPMID,
		rec.CitedPMID,
		strconv.Itoa(rec.InPaperID),
		rec.CitationStr,
		rec.Paragraph,
		rec.Context,
	})
}

func (t *Table) write(row []string) error {
	if err := t.w.Write(row); err != nil {
		return err
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return err
	}
	return t.f.Sync()
}

// Close closes the underlying file.
func (t *Table) Close() error {
	return t.f.Close()
}

// ReadTable reads every record of the result table at path.
func ReadTable(path string) ([]types.ContextRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening result table %s: %w", path, err)
	}
	defer f.Close()
	return DecodeTable(f)
}

// DecodeTable reads records from CSV in the result table schema. The
// header row is required and must match types.TableColumns.
func DecodeTable(r io.Reader) ([]types.ContextRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(types.TableColumns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, col := range types.TableColumns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d %q, want %q", i, header[i], col)
		}
	}

	var records []types.ContextRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		seq, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("parsing in_paper_id %q: %w", row[2], err)
		}
		records = append(records, types.ContextRecord{
			CitingPMID:  row[0],
			CitedPMID:   row[1],
			InPaperID:   seq,
			CitationStr: row[3],
			Paragraph:   row[4],
			Context:     row[5],
		})
	}
	return records, nil
}
