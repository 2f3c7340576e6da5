// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pdiddy/citation-harvester/pkg/types"
)

var lineFlattener = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// Log appends diagnostics to L<target>.txt, one line per event:
//
//	<RFC3339 time>\t<citing pmid>\t<kind>\t<message>
type Log struct {
	f   *os.File
	now func() time.Time
}

// OpenLog opens the diagnostic log for target, creating it if needed.
func OpenLog(dir, target string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	path := LogPath(dir, target)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	return &Log{f: f, now: time.Now}, nil
}

// Write appends d as a single line.
func (l *Log) Write(d types.Diagnostic) error {
	line := fmt.Sprintf("%s\t%s\t%s\t%s\n",
		l.now().UTC().Format(time.RFC3339),
		lineFlattener.Replace(d.CitingPMID),
		d.Kind,
		lineFlattener.Replace(d.Message))
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	return l.f.Close()
}
