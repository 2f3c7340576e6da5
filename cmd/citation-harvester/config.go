// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citation-harvester/internal/index"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultRetries   = 1
	defaultUserAgent = "citation-harvester/0.1"
	defaultDataDir   = "data"
	defaultOutputDir = "."
)

func init() {
	viper.SetDefault("data_dir", defaultDataDir)
	viper.SetDefault("output_dir", defaultOutputDir)
	viper.SetDefault("base_url", types.DefaultBaseURL)
	viper.SetDefault("timeout", defaultTimeout)
	viper.SetDefault("download_delay", defaultDelay)
	viper.SetDefault("retries", defaultRetries)
	viper.SetDefault("user_agent", defaultUserAgent)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("index.db", index.DefaultDBPath)
	viper.SetDefault("index.max_results", 20)
}

// bindFlags binds the named flags of cmd to config keys. Binding happens
// when the command runs so commands sharing a key do not override each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// addFetchFlags registers the flags read by fetchConfig.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().String("base-url", "", "archive base URL (default "+types.DefaultBaseURL+")")
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	cmd.Flags().Duration("download-delay", 0, "minimum spacing between downloads (default 1s)")
	cmd.Flags().Int("retries", defaultRetries, "extra attempts for a failed download")
	cmd.Flags().String("user-agent", "", "User-Agent header (default "+defaultUserAgent+")")
	cmd.Flags().String("data-dir", "", "working directory for unpacked archives (default data)")
}

var fetchFlagKeys = map[string]string{
	"base-url":       "base_url",
	"timeout":        "timeout",
	"download-delay": "download_delay",
	"retries":        "retries",
	"user-agent":     "user_agent",
	"data-dir":       "data_dir",
}

func fetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
		},
		BaseURL:       viper.GetString("base_url"),
		DownloadDelay: viper.GetDuration("download_delay"),
		Retries:       viper.GetInt("retries"),
	}
}

func httpClient(cfg types.FetchConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

func indexConfig() types.IndexConfig {
	return types.IndexConfig{
		DBPath:     viper.GetString("index.db"),
		MaxResults: viper.GetInt("index.max_results"),
	}
}

// prompter asks for missing values on an interactive stream.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed line the operator enters.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
