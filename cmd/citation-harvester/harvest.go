// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/citation-harvester/internal/corpus"
	"github.com/pdiddy/citation-harvester/internal/extract"
	"github.com/pdiddy/citation-harvester/internal/fetch"
	"github.com/pdiddy/citation-harvester/internal/harvest"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest citation contexts of a target publication",
	Long: `Harvest joins the iCite report with the PMC open-access file list, writes
the worklist to <data-dir>/urls.csv, then fetches each citing article and
appends the paragraphs citing the target to A<target>.csv. Articles without
a reference to the target, or without citing paragraphs, are noted in
L<target>.txt. A run summary is written to S<target>.yaml.

Missing --report, --metadata, or --target values are asked for on stdin.
Re-running a target appends duplicate rows.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().String("report", "", "iCite report of citing articles (.xlsx or .csv)")
	harvestCmd.Flags().String("metadata", "", "PMC open-access file list (oa_file_list.csv)")
	harvestCmd.Flags().String("target", "", "PMID of the cited publication")
	harvestCmd.Flags().String("worklist", "", "reuse an existing urls.csv instead of joining")
	harvestCmd.Flags().String("output-dir", "", "directory for result files (default .)")
	harvestCmd.Flags().Bool("clean", false, "remove leftover PMC* directories from the data dir first")
	addFetchFlags(harvestCmd)

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, args []string) error {
	keys := map[string]string{
		"report":     "report",
		"metadata":   "metadata",
		"target":     "target",
		"output-dir": "output_dir",
	}
	for k, v := range fetchFlagKeys {
		keys[k] = v
	}
	if err := bindFlags(cmd, keys); err != nil {
		return err
	}

	worklistPath, _ := cmd.Flags().GetString("worklist")
	clean, _ := cmd.Flags().GetBool("clean")

	cfg := types.HarvestConfig{
		Fetch:        fetchConfig(),
		ReportPath:   viper.GetString("report"),
		MetadataPath: viper.GetString("metadata"),
		WorklistPath: worklistPath,
		Target:       viper.GetString("target"),
		DataDir:      viper.GetString("data_dir"),
		OutputDir:    viper.GetString("output_dir"),
	}
	if err := promptMissing(cmd, &cfg); err != nil {
		return asConfigError(err)
	}
	if err := cfg.Validate(); err != nil {
		return asConfigError(fmt.Errorf("invalid configuration: %w", err))
	}

	if err := harvest.PrepareWorkDir(cfg.DataDir, clean); err != nil {
		if errors.Is(err, harvest.ErrDirtyWorkDir) {
			return asConfigError(err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	wl, err := buildWorklist(cfg)
	if err != nil {
		return asConfigError(err)
	}
	if cfg.WorklistPath == "" {
		fmt.Fprintf(out, "Worklist: %d of %d citing articles have full text (%.1f%% coverage)\n",
			len(wl.Items), wl.Candidates, 100*wl.Coverage())
	} else {
		fmt.Fprintf(out, "Worklist: %d articles from %s\n", len(wl.Items), cfg.WorklistPath)
	}

	splitter, err := extract.NewPunktSplitter()
	if err != nil {
		return err
	}
	fetcher := fetch.New(httpClient(cfg.Fetch), cfg.Fetch, logger)
	h := harvest.New(cfg, fetcher, extract.NewExtractor(splitter), logger)

	_, err = h.Harvest(cmd.Context(), wl, out)
	return err
}

// promptMissing asks for the report, metadata, and target, in that order,
// when they were not configured.
func promptMissing(cmd *cobra.Command, cfg *types.HarvestConfig) error {
	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	var err error
	if cfg.WorklistPath == "" && cfg.ReportPath == "" {
		if cfg.ReportPath, err = p.ask("iCite report file"); err != nil {
			return err
		}
	}
	if cfg.WorklistPath == "" && cfg.MetadataPath == "" {
		if cfg.MetadataPath, err = p.ask("PMC metadata file"); err != nil {
			return err
		}
	}
	if cfg.Target == "" {
		if cfg.Target, err = p.ask("Target PMID"); err != nil {
			return err
		}
	}
	return nil
}

// buildWorklist joins the report with the metadata and saves urls.csv, or
// reads the worklist given with --worklist.
func buildWorklist(cfg types.HarvestConfig) (corpus.Worklist, error) {
	if cfg.WorklistPath != "" {
		items, err := corpus.ReadWorklist(cfg.WorklistPath)
		if err != nil {
			return corpus.Worklist{}, err
		}
		return corpus.Worklist{Items: items}, nil
	}

	wl, err := joinInputs(cfg.ReportPath, cfg.MetadataPath)
	if err != nil {
		return corpus.Worklist{}, err
	}
	path := filepath.Join(cfg.DataDir, corpus.WorklistFile)
	if err := corpus.WriteWorklist(path, wl.Items); err != nil {
		return corpus.Worklist{}, err
	}
	logger.Info("worklist written", zap.String("path", path), zap.Int("items", len(wl.Items)))
	return wl, nil
}

func joinInputs(reportPath, metadataPath string) (corpus.Worklist, error) {
	candidates, err := corpus.LoadReport(reportPath)
	if err != nil {
		return corpus.Worklist{}, err
	}
	locations, err := corpus.LoadMetadata(metadataPath)
	if err != nil {
		return corpus.Worklist{}, err
	}
	return corpus.Join(candidates, locations), nil
}
