// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

// QueryOptions holds parameters for index queries.
type QueryOptions struct {
	// Query is an FTS5 search over context sentences and paragraphs.
	Query string

	// CitedPMID restricts results to one target.
	CitedPMID string

	// CitingPMID restricts results to one citing article.
	CitingPMID string

	// MaxResults limits the result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.CitedPMID == "" && q.CitingPMID == ""
}

// QueryResult is one indexed context with the table it came from.
type QueryResult struct {
	types.ContextRecord `yaml:",inline"`
	Source              string `json:"source" yaml:"source"`
}

// Retrieve queries the index. Full-text results are ranked by relevance;
// filter-only results are ordered by target, citing article, and paragraph
// sequence.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT c.source, c.citing_pmid, c.cited_pmid, c.in_paper_id,
				c.citation_str, c.paragraph, c.cit_contxt
			FROM contexts_fts
			JOIN contexts c ON c.rowid = contexts_fts.rowid
			WHERE contexts_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(
			`SELECT c.source, c.citing_pmid, c.cited_pmid, c.in_paper_id,
				c.citation_str, c.paragraph, c.cit_contxt
			FROM contexts c
			WHERE 1=1`)
	}

	if opts.CitedPMID != "" {
		qb.WriteString(` AND c.cited_pmid = ?`)
		args = append(args, opts.CitedPMID)
	}
	if opts.CitingPMID != "" {
		qb.WriteString(` AND c.citing_pmid = ?`)
		args = append(args, opts.CitingPMID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY contexts_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.cited_pmid, c.citing_pmid, c.in_paper_id, c.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var qr QueryResult
		if err := rows.Scan(
			&qr.Source, &qr.CitingPMID, &qr.CitedPMID, &qr.InPaperID,
			&qr.CitationStr, &qr.Paragraph, &qr.Context,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, qr)
	}
	return results, rows.Err()
}

// Count returns the number of indexed contexts per target.
func (s *Store) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cited_pmid, count(*) FROM contexts GROUP BY cited_pmid`)
	if err != nil {
		return nil, fmt.Errorf("counting contexts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			target string
			n      int
		)
		if err := rows.Scan(&target, &n); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		counts[target] = n
	}
	return counts, rows.Err()
}
