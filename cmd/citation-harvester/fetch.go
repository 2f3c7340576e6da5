// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-harvester/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <location>",
	Short: "Download and unpack one article package",
	Long: `Fetch downloads one package from the open-access mirror, where location is
a File value from oa_file_list.csv (e.g. oa_package/08/e0/PMC13900.tar.gz),
unpacks it into the data directory, and prints the article document path.
The unpacked files are left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	addFetchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, fetchFlagKeys); err != nil {
		return err
	}

	cfg := fetchConfig()
	if err := cfg.Validate(); err != nil {
		return asConfigError(fmt.Errorf("invalid configuration: %w", err))
	}

	f := fetch.New(httpClient(cfg), cfg, logger)
	docPath, err := f.Fetch(cmd.Context(), args[0], viper.GetString("data_dir"))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), docPath)
	return nil
}
