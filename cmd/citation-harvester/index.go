// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-harvester/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the context index (store, query, export)",
	Long: `Index manages a local SQLite database built from the A<target>.csv result
tables. Use subcommands to load tables, search contexts, or export them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{
			"db":          "index.db",
			"max-results": "index.max_results",
		})
	},
}

// --- store subcommand ---

var indexStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Load result tables into the index",
	Long: `Store reads every A<target>.csv in the output directory into the index.
Unchanged tables are skipped; a changed table replaces its earlier rows.`,
	RunE: runIndexStore,
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"output-dir": "output_dir"}); err != nil {
		return err
	}

	store, err := index.Open(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), viper.GetString("output_dir"), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d table(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var indexQueryCmd = &cobra.Command{
	Use:   "query [terms]",
	Short: "Search indexed contexts",
	Long: `Query searches context sentences and paragraphs with FTS5 full-text
search, optionally restricted to one target (--cited) or one citing
article (--citing).`,
	RunE: runIndexQuery,
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return asConfigError(fmt.Errorf("query or filter required: provide search terms, --cited, or --citing"))
	}

	store, err := index.Open(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatQueryOutput(cmd.OutOrStdout(), results, jsonOutput)
}

func formatQueryOutput(w io.Writer, results []index.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-10s  %-4s  %s\n", "Rank", "Cited", "Citing", "Seq", "Context")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, r := range results {
		context := r.Context
		if context == "" {
			context = r.Paragraph
		}
		if len(context) > 60 {
			context = context[:57] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-10s  %-10s  %-4d  %s\n", i+1, r.CitedPMID, r.CitingPMID, r.InPaperID, context)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export indexed contexts to YAML or JSON",
	Long: `Export writes all indexed contexts, or those matching the query and
filter flags, to a YAML or JSON file.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := index.Open(indexConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if out == "" {
			out = "contexts-export.yaml"
		}
		err = store.ExportYAML(cmd.Context(), opts, out)
	case "json":
		if out == "" {
			out = "contexts-export.json"
		}
		err = store.ExportJSON(cmd.Context(), opts, out)
	default:
		return asConfigError(fmt.Errorf("unsupported format %q: use yaml or json", format))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
	return nil
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	cited, _ := cmd.Flags().GetString("cited")
	citing, _ := cmd.Flags().GetString("citing")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Query:      queryText,
		CitedPMID:  cited,
		CitingPMID: citing,
		MaxResults: limit,
	}
}

func init() {
	indexCmd.PersistentFlags().String("db", "", "index database path (default "+index.DefaultDBPath+")")
	indexCmd.PersistentFlags().Int("max-results", 20, "default maximum number of query results")

	indexStoreCmd.Flags().String("output-dir", "", "directory holding A<target>.csv files (default .)")

	for _, c := range []*cobra.Command{indexQueryCmd, indexExportCmd} {
		c.Flags().String("query", "", "full-text search query")
		c.Flags().String("cited", "", "filter by target PMID")
		c.Flags().String("citing", "", "filter by citing PMID")
	}
	indexQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexQueryCmd.Flags().Bool("json", false, "output results as JSON")
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	indexExportCmd.Flags().String("out", "", "export file (default contexts-export.<format>)")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexExportCmd)

	rootCmd.AddCommand(indexCmd)
}
