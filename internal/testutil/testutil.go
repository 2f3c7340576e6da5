// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutil provides shared test helpers for building article
// packages and serving them over HTTP.
package testutil

import (
	"archive/tar"
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Entry is one file in a test archive. A Name ending in "/" is a directory.
type Entry struct {
	Name string
	Body string
}

// TarGz builds a gzip-compressed tar archive holding entries in order.
func TarGz(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, Size: int64(len(e.Body)), Typeflag: tar.TypeReg}
		if len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/' {
			hdr = &tar.Header{Name: e.Name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ArchiveServer serves archives by URL path and counts requests per path.
// Paths without an archive get 404.
type ArchiveServer struct {
	*httptest.Server

	mu       sync.Mutex
	archives map[string][]byte
	hits     map[string]int
}

// NewArchiveServer starts a server for archives keyed by path (e.g.
// "/oa_package/00/00/PMC1.tar.gz"). It is closed when the test ends.
func NewArchiveServer(t testing.TB, archives map[string][]byte) *ArchiveServer {
	t.Helper()
	s := &ArchiveServer{archives: archives, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		body, ok := s.archives[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-gzip")
		w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns how many requests path received.
func (s *ArchiveServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}
