// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validHarvestConfig() HarvestConfig {
	return HarvestConfig{
		Fetch: FetchConfig{
			HTTPConfig:    HTTPConfig{Timeout: time.Minute, UserAgent: "citation-harvester/0.1"},
			BaseURL:       DefaultBaseURL,
			DownloadDelay: time.Second,
			Retries:       1,
		},
		ReportPath:   "report.xlsx",
		MetadataPath: "oa_file_list.csv",
		Target:       "1000",
		DataDir:      "data",
		OutputDir:    ".",
	}
}

func TestHarvestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*HarvestConfig)
		wantErr string
	}{
		{"valid", func(*HarvestConfig) {}, ""},
		{"missing target", func(c *HarvestConfig) { c.Target = "" }, "target"},
		{"target with path separator", func(c *HarvestConfig) { c.Target = "../1000" }, "target"},
		{"missing report", func(c *HarvestConfig) { c.ReportPath = "" }, "report"},
		{"missing metadata", func(c *HarvestConfig) { c.MetadataPath = "" }, "metadata"},
		{"worklist replaces report and metadata", func(c *HarvestConfig) {
			c.ReportPath, c.MetadataPath, c.WorklistPath = "", "", "data/urls.csv"
		}, ""},
		{"missing data dir", func(c *HarvestConfig) { c.DataDir = "" }, "data_dir"},
		{"bad base url", func(c *HarvestConfig) { c.Fetch.BaseURL = "not a url" }, "base_url"},
		{"short timeout", func(c *HarvestConfig) { c.Fetch.Timeout = time.Millisecond }, "timeout"},
		{"missing user agent", func(c *HarvestConfig) { c.Fetch.UserAgent = "" }, "user_agent"},
		{"too many retries", func(c *HarvestConfig) { c.Fetch.Retries = 9 }, "retries"},
		{"negative retries", func(c *HarvestConfig) { c.Fetch.Retries = -1 }, "retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validHarvestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, id := range []string{"1000", "PMC13900", "10.1000_x-y"} {
		assert.NoError(t, ValidateIdentifier(id), id)
	}
	for _, id := range []string{"", "a/b", "a b", "x;rm"} {
		assert.Error(t, ValidateIdentifier(id), id)
	}
}
