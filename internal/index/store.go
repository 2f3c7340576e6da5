// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index loads harvested result tables into a SQLite database with a
// full-text index over sentences and paragraphs.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citation-harvester/internal/sink"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

// DefaultDBPath is used when no database path is configured.
const DefaultDBPath = "index/contexts.db"

const defaultMaxResults = 20

// Store manages the context index database.
type Store struct {
	db         *sql.DB
	path       string
	maxResults int
}

// Open opens or creates the index database at cfg.DBPath and ensures the
// schema exists.
func Open(cfg types.IndexConfig) (*Store, error) {
	path := cfg.DBPath
	if path == "" {
		path = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, path: path, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS contexts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			citing_pmid TEXT NOT NULL,
			cited_pmid TEXT NOT NULL,
			in_paper_id INTEGER NOT NULL,
			citation_str TEXT,
			paragraph TEXT,
			cit_contxt TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contexts_cited ON contexts(cited_pmid)`,
		`CREATE INDEX IF NOT EXISTS idx_contexts_citing ON contexts(citing_pmid)`,
		`CREATE INDEX IF NOT EXISTS idx_contexts_source ON contexts(source)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='contexts_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE contexts_fts USING fts5(cit_contxt, paragraph, content=contexts, content_rowid=rowid)`,
		`CREATE TRIGGER contexts_ai AFTER INSERT ON contexts BEGIN
			INSERT INTO contexts_fts(rowid, cit_contxt, paragraph) VALUES (new.rowid, new.cit_contxt, new.paragraph);
		END`,
		`CREATE TRIGGER contexts_ad AFTER DELETE ON contexts BEGIN
			INSERT INTO contexts_fts(contexts_fts, rowid, cit_contxt, paragraph) VALUES('delete', old.rowid, old.cit_contxt, old.paragraph);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
	Records int
}

// Total returns the number of result tables processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest loads every A<target>.csv in dir. A table whose modification time
// matches the last ingest is skipped; a changed table replaces the rows
// previously loaded from it.
func (s *Store) Ingest(ctx context.Context, dir string, w io.Writer) (IngestSummary, error) {
	paths, err := filepath.Glob(sink.TablePath(dir, "*"))
	if err != nil {
		return IngestSummary{}, fmt.Errorf("listing result tables in %s: %w", dir, err)
	}

	var summary IngestSummary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		source := filepath.Base(path)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var stored string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM indexing_status WHERE source = ?`, source,
		).Scan(&stored)
		if err == nil && stored == modTime {
			fmt.Fprintf(w, "skipped %s\n", source)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		records, err := sink.ReadTable(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}

		if err := s.ingestTable(ctx, source, records, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}
		summary.Records += len(records)

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d contexts)\n", source, len(records))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d contexts)\n", source, len(records))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestTable(ctx context.Context, source string, records []types.ContextRecord, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contexts WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting old contexts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contexts (source, citing_pmid, cited_pmid, in_paper_id, citation_str, paragraph, cit_contxt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			source, rec.CitingPMID, rec.CitedPMID, rec.InPaperID,
			rec.CitationStr, rec.Paragraph, rec.Context,
		); err != nil {
			return fmt.Errorf("inserting context %s/%d: %w", rec.CitingPMID, rec.InPaperID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	); err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	return tx.Commit()
}
