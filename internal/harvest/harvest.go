// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a run over a worklist: each citing article is
// fetched, its citation contexts extracted and recorded, and its working
// files removed before the next article starts.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/citation-harvester/internal/corpus"
	"github.com/pdiddy/citation-harvester/internal/extract"
	"github.com/pdiddy/citation-harvester/internal/fetch"
	"github.com/pdiddy/citation-harvester/internal/sink"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

// ErrDirtyWorkDir is returned when the working directory still holds
// unpacked packages from an earlier run.
var ErrDirtyWorkDir = errors.New("working directory contains unpacked PMC packages")

// Fetcher retrieves one article package into a working directory and
// returns the path of its document.
type Fetcher interface {
	Fetch(ctx context.Context, location, workDir string) (string, error)
}

// Stats counts per-item outcomes of a run.
type Stats struct {
	WithContexts   int
	NoReference    int
	NoContext      int
	Failed         int
	RecordsWritten int
}

// Total returns the number of items processed.
func (s Stats) Total() int {
	return s.WithContexts + s.NoReference + s.NoContext + s.Failed
}

// HasFailures reports whether any item failed.
func (s Stats) HasFailures() bool {
	return s.Failed > 0
}

// Harvester runs the per-item pipeline for one target.
type Harvester struct {
	cfg       types.HarvestConfig
	fetcher   Fetcher
	extractor *extract.Extractor
	logger    *zap.Logger
	now       func() time.Time
}

// New returns a Harvester for cfg.Target.
func New(cfg types.HarvestConfig, fetcher Fetcher, extractor *extract.Extractor, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger.With(zap.String("target", cfg.Target)),
		now:       time.Now,
	}
}

// PrepareWorkDir checks that dir holds no unpacked packages. With clean set,
// leftover packages are removed instead.
func PrepareWorkDir(dir string, clean bool) error {
	dirs, err := fetch.ArchiveDirs(dir)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return nil
	}
	if !clean {
		return fmt.Errorf("%w: %s (rerun with --clean to remove them)", ErrDirtyWorkDir, dir)
	}
	return fetch.Cleanup(dir)
}

// Run processes items in order, printing one progress line per item to w.
// Per-item failures are logged to L<target>.txt and counted; the run goes
// on. Run returns early only when the output files cannot be opened or ctx
// is cancelled; the summary reflects the items processed so far.
func (h *Harvester) Run(ctx context.Context, items []types.WorklistItem, w io.Writer) (Stats, error) {
	var stats Stats

	table, err := sink.OpenTable(h.cfg.OutputDir, h.cfg.Target)
	if err != nil {
		return stats, err
	}
	defer table.Close()

	log, err := sink.OpenLog(h.cfg.OutputDir, h.cfg.Target)
	if err != nil {
		return stats, err
	}
	defer log.Close()

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("harvest interrupted after %d of %d items: %w", i, len(items), err)
		}
		prefix := fmt.Sprintf("[%d/%d] PMID %s", i+1, len(items), item.PMID)

		written, outcome, err := h.processItem(ctx, item, table, log)
		stats.RecordsWritten += written

		if cleanErr := fetch.Cleanup(h.cfg.DataDir); cleanErr != nil {
			h.logger.Warn("cleanup failed", zap.String("pmid", item.PMID), zap.Error(cleanErr))
		}

		if err != nil {
			stats.Failed++
			fmt.Fprintf(w, "%s: failed (%v)\n", prefix, err)
			continue
		}
		switch outcome.Outcome {
		case extract.OutcomeContexts:
			stats.WithContexts++
			fmt.Fprintf(w, "%s: %d contexts, citation %q\n", prefix, written, outcome.CitationStr)
		case extract.OutcomeNoReference:
			stats.NoReference++
			fmt.Fprintf(w, "%s: no reference to %s\n", prefix, h.cfg.Target)
		case extract.OutcomeNoContext:
			stats.NoContext++
			fmt.Fprintf(w, "%s: reference %s found, no citing paragraphs\n", prefix, outcome.Resolution.Marker)
		}
	}
	return stats, nil
}

// processItem fetches, extracts, and records one article. It returns the
// number of records written even when a later record fails.
func (h *Harvester) processItem(ctx context.Context, item types.WorklistItem, table *sink.Table, log *sink.Log) (int, extract.Result, error) {
	logger := h.logger.With(zap.String("pmid", item.PMID))

	docPath, err := h.fetcher.Fetch(ctx, item.File, h.cfg.DataDir)
	if err != nil {
		h.diagnose(log, item.PMID, types.DiagFetchFailed, err)
		return 0, extract.Result{}, err
	}

	doc, err := extract.ParseFile(docPath)
	if err != nil {
		h.diagnose(log, item.PMID, types.DiagDocumentFailed, err)
		return 0, extract.Result{}, err
	}

	res := h.extractor.Extract(doc, h.cfg.Target, item.PMID)
	for _, d := range res.Diagnostics {
		if err := log.Write(d); err != nil {
			logger.Error("writing diagnostic", zap.Error(err))
		}
	}
	if res.Outcome == extract.OutcomeContexts {
		logger.Info("reference resolved",
			zap.String("marker", res.Resolution.Marker),
			zap.String("citation", res.CitationStr),
			zap.Int("paragraphs", len(res.Records)))
	}

	written := 0
	for _, rec := range res.Records {
		if err := table.Append(rec); err != nil {
			err = fmt.Errorf("recording paragraph %d: %w", rec.InPaperID, err)
			h.diagnose(log, item.PMID, types.DiagRecordFailed, err)
			return written, res, err
		}
		written++
	}
	return written, res, nil
}

func (h *Harvester) diagnose(log *sink.Log, pmid string, kind types.DiagnosticKind, cause error) {
	h.logger.Warn("item failed", zap.String("pmid", pmid), zap.String("kind", string(kind)), zap.Error(cause))
	if err := log.Write(types.Diagnostic{CitingPMID: pmid, Kind: kind, Message: cause.Error()}); err != nil {
		h.logger.Error("writing diagnostic", zap.Error(err))
	}
}

// Harvest runs the worklist, writes S<target>.yaml, and prints the closing
// summary to w. The summary is written even when the run is interrupted.
func (h *Harvester) Harvest(ctx context.Context, wl corpus.Worklist, w io.Writer) (types.RunSummary, error) {
	started := h.now()
	stats, runErr := h.Run(ctx, wl.Items, w)

	summary := Summarize(h.cfg.Target, wl, stats, started, h.now())
	if err := sink.WriteSummary(h.cfg.OutputDir, summary); err != nil {
		h.logger.Error("writing run summary", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	PrintSummary(w, summary, h.cfg.OutputDir)
	return summary, runErr
}

// Summarize builds the run summary from the joined worklist and the run's stats.
func Summarize(target string, wl corpus.Worklist, stats Stats, started, finished time.Time) types.RunSummary {
	return types.RunSummary{
		Target:         target,
		StartedAt:      started.UTC(),
		FinishedAt:     finished.UTC(),
		Candidates:     wl.Candidates,
		Coverage:       wl.Coverage(),
		Worklist:       len(wl.Items),
		WithContexts:   stats.WithContexts,
		NoReference:    stats.NoReference,
		NoContext:      stats.NoContext,
		Failed:         stats.Failed,
		RecordsWritten: stats.RecordsWritten,
	}
}

// PrintSummary writes the closing lines of a run to w.
func PrintSummary(w io.Writer, s types.RunSummary, outputDir string) {
	fmt.Fprintf(w, "\nHarvest summary: %d with contexts, %d without reference, %d without context, %d failed (total: %d); %d records written\n",
		s.WithContexts, s.NoReference, s.NoContext, s.Failed,
		s.WithContexts+s.NoReference+s.NoContext+s.Failed, s.RecordsWritten)
	fmt.Fprintf(w, "Done. Contexts in %s, log in %s\n",
		sink.TablePath(outputDir, s.Target), sink.LogPath(outputDir, s.Target))
}
