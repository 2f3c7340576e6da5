// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunSummary is written to S<target>.yaml at the end of a harvest run.
type RunSummary struct {
	Target     string    `json:"target" yaml:"target"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Candidates is the number of citing PMIDs in the report; zero when the
	// run reused an existing worklist.
	Candidates int `json:"candidates" yaml:"candidates"`

	// Coverage is the fraction of candidates found in the OA metadata.
	Coverage float64 `json:"coverage" yaml:"coverage"`

	Worklist       int `json:"worklist" yaml:"worklist"`
	WithContexts   int `json:"with_contexts" yaml:"with_contexts"`
	NoReference    int `json:"no_reference" yaml:"no_reference"`
	NoContext      int `json:"no_context" yaml:"no_context"`
	Failed         int `json:"failed" yaml:"failed"`
	RecordsWritten int `json:"records_written" yaml:"records_written"`
}
