// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-harvester/internal/extract"
	"github.com/pdiddy/citation-harvester/internal/sink"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document.nxml>",
	Short: "Extract citation contexts from a local JATS document",
	Long: `Extract runs the context extractor on one article document already on
disk and prints the records as a table, or as JSON with --json. With
--append the records and diagnostics are also written to A<target>.csv and
L<target>.txt in the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("target", "", "PMID of the cited publication")
	extractCmd.Flags().String("citing", "", "PMID of the citing article (default: document file name)")
	extractCmd.Flags().Bool("json", false, "output records as JSON")
	extractCmd.Flags().Bool("append", false, "append records to the result table and log")
	extractCmd.Flags().String("output-dir", "", "directory for result files (default .)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"target":     "target",
		"output-dir": "output_dir",
	}); err != nil {
		return err
	}

	target := viper.GetString("target")
	if err := types.ValidateIdentifier(target); err != nil {
		return asConfigError(fmt.Errorf("target: %w", err))
	}
	citing, _ := cmd.Flags().GetString("citing")
	if citing == "" {
		citing = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}

	doc, err := extract.ParseFile(args[0])
	if err != nil {
		return err
	}
	splitter, err := extract.NewPunktSplitter()
	if err != nil {
		return err
	}
	res := extract.NewExtractor(splitter).Extract(doc, target, citing)

	if appendOut, _ := cmd.Flags().GetBool("append"); appendOut {
		if err := appendResult(viper.GetString("output_dir"), target, res); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Records)
	}
	formatExtractOutput(out, res)
	return nil
}

func appendResult(dir, target string, res extract.Result) error {
	table, err := sink.OpenTable(dir, target)
	if err != nil {
		return err
	}
	defer table.Close()
	for _, rec := range res.Records {
		if err := table.Append(rec); err != nil {
			return err
		}
	}

	log, err := sink.OpenLog(dir, target)
	if err != nil {
		return err
	}
	defer log.Close()
	for _, d := range res.Diagnostics {
		if err := log.Write(d); err != nil {
			return err
		}
	}
	return nil
}

func formatExtractOutput(w io.Writer, res extract.Result) {
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "%s: %s\n", d.Kind, d.Message)
	}
	if len(res.Records) == 0 {
		fmt.Fprintln(w, "No citation contexts found.")
		return
	}

	fmt.Fprintf(w, "Reference %s, citation %q\n\n", res.Resolution.Marker, res.CitationStr)
	fmt.Fprintf(w, "%-4s  %s\n", "Seq", "Context")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, rec := range res.Records {
		context := rec.Context
		if context == "" {
			context = "(no single sentence holds the citation)"
		}
		fmt.Fprintf(w, "%-4d  %s\n", rec.InPaperID, truncate(context, 72))
	}
	fmt.Fprintf(w, "\n%d contexts\n", len(res.Records))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
