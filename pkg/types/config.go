// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DefaultBaseURL is the PubMed Central open-access mirror that archive
// locations from oa_file_list.csv are relative to.
const DefaultBaseURL = "https://ftp.ncbi.nlm.nih.gov/pub/pmc/"

// identifierRe restricts target identifiers to characters that are safe in
// the A<target>.csv and L<target>.txt file names.
var identifierRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citation-harvester/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Validate checks the HTTP settings.
func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.UserAgent, validation.Required),
	)
}

// FetchConfig holds settings for the archive fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is prefixed to every archive location.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// DownloadDelay is the minimum spacing between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// Retries is how many extra attempts a failed fetch gets before the
	// item is given up on (default 1).
	Retries int `json:"retries" yaml:"retries"`
}

// Validate checks the fetch settings.
func (c FetchConfig) Validate() error {
	if err := c.HTTPConfig.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.DownloadDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(5)),
	)
}

// HarvestConfig groups the inputs and settings of one harvest run.
type HarvestConfig struct {
	Fetch FetchConfig `json:"fetch" yaml:"fetch"`

	// ReportPath is the iCite report of citing articles (.xlsx or .csv).
	ReportPath string `json:"report" yaml:"report"`

	// MetadataPath is the PMC OA file list (oa_file_list.csv).
	MetadataPath string `json:"metadata" yaml:"metadata"`

	// WorklistPath, when set, is a previously written urls.csv used instead
	// of joining ReportPath and MetadataPath.
	WorklistPath string `json:"worklist,omitempty" yaml:"worklist,omitempty"`

	// Target is the PMID whose citation contexts are harvested.
	Target string `json:"target" yaml:"target"`

	// DataDir is the working directory archives are unpacked into; urls.csv
	// is written here too.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// OutputDir receives A<target>.csv, L<target>.txt, and S<target>.yaml.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Validate checks that the run has everything it needs before any work starts.
func (c HarvestConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Target, validation.Required, validation.Match(identifierRe).Error("must contain only letters, digits, '.', '_' or '-'")),
		validation.Field(&c.ReportPath, validation.When(c.WorklistPath == "", validation.Required)),
		validation.Field(&c.MetadataPath, validation.When(c.WorklistPath == "", validation.Required)),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.OutputDir, validation.Required),
	); err != nil {
		return err
	}
	return c.Fetch.Validate()
}

// ValidateIdentifier reports whether id can be used as a target identifier.
func ValidateIdentifier(id string) error {
	return validation.Validate(id,
		validation.Required,
		validation.Match(identifierRe).Error("must contain only letters, digits, '.', '_' or '-'"),
	)
}

// IndexConfig holds settings for the context index.
type IndexConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db" yaml:"db"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
