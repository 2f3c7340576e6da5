// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-harvester/internal/corpus"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Build the worklist of citing articles with open-access full text",
	Long: `Join reads the citing PMIDs from the first column of an iCite report,
keeps those listed in the PMC open-access file list, and writes the
result to <data-dir>/urls.csv (or --out). Coverage is printed.`,
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().String("report", "", "iCite report of citing articles (.xlsx or .csv)")
	joinCmd.Flags().String("metadata", "", "PMC open-access file list (oa_file_list.csv)")
	joinCmd.Flags().String("data-dir", "", "directory for urls.csv (default data)")
	joinCmd.Flags().String("out", "", "worklist path (default <data-dir>/urls.csv)")

	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"report":   "report",
		"metadata": "metadata",
		"data-dir": "data_dir",
	}); err != nil {
		return err
	}

	reportPath, metadataPath := viper.GetString("report"), viper.GetString("metadata")
	if reportPath == "" || metadataPath == "" {
		return asConfigError(fmt.Errorf("--report and --metadata are required"))
	}

	wl, err := joinInputs(reportPath, metadataPath)
	if err != nil {
		return asConfigError(err)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(viper.GetString("data_dir"), corpus.WorklistFile)
	}
	if err := corpus.WriteWorklist(out, wl.Items); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d citing articles have full text (%.1f%% coverage)\nWorklist written to %s\n",
		len(wl.Items), wl.Candidates, 100*wl.Coverage(), out)
	return nil
}
