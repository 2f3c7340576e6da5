// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citation-harvester/internal/httputil"
	"github.com/pdiddy/citation-harvester/internal/testutil"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const sampleNXML = `<?xml version="1.0"?><article><body><p>x</p></body></article>`

func testConfig(baseURL string) types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "citation-harvester-test"},
		BaseURL:    baseURL + "/",
		Retries:    1,
	}
}

func samplePackage(t *testing.T, pmc string) []byte {
	return testutil.TarGz(t,
		testutil.Entry{Name: pmc + "/"},
		testutil.Entry{Name: pmc + "/article.nxml", Body: sampleNXML},
		testutil.Entry{Name: pmc + "/fig1.jpg", Body: "jpeg"},
	)
}

func TestFetch_Success(t *testing.T) {
	srv := testutil.NewArchiveServer(t, map[string][]byte{
		"/oa_package/00/01/PMC100.tar.gz": samplePackage(t, "PMC100"),
	})
	workDir := t.TempDir()

	f := New(srv.Client(), testConfig(srv.URL), nil)
	docPath, err := f.Fetch(context.Background(), "oa_package/00/01/PMC100.tar.gz", workDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(workDir, "PMC100", "article.nxml"), docPath)
	data, err := os.ReadFile(docPath)
	require.NoError(t, err)
	assert.Equal(t, sampleNXML, string(data))
	assert.FileExists(t, filepath.Join(workDir, "PMC100", "fig1.jpg"))
	assert.Equal(t, 1, srv.Hits("/oa_package/00/01/PMC100.tar.gz"))
}

func TestFetch_SendsUserAgent(t *testing.T) {
	ua := make(chan string, 1)
	archive := samplePackage(t, "PMC1")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua <- r.Header.Get("User-Agent")
		w.Write(archive)
	}))
	defer ts.Close()

	f := New(ts.Client(), testConfig(ts.URL), nil)
	_, err := f.Fetch(context.Background(), "PMC1.tar.gz", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "citation-harvester-test", <-ua)
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	srv := testutil.NewArchiveServer(t, nil)

	f := New(srv.Client(), testConfig(srv.URL), nil)
	_, err := f.Fetch(context.Background(), "missing.tar.gz", t.TempDir())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, 1, srv.Hits("/missing.tar.gz"))
}

func TestFetch_ServerErrorRetriedOnce(t *testing.T) {
	var calls int32
	archive := samplePackage(t, "PMC7")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(archive)
	}))
	defer ts.Close()

	f := New(ts.Client(), testConfig(ts.URL), nil)
	docPath, err := f.Fetch(context.Background(), "PMC7.tar.gz", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "article.nxml", filepath.Base(docPath))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_CorruptArchiveFailsAfterRetry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("this is not gzip"))
	}))
	defer ts.Close()

	workDir := t.TempDir()
	f := New(ts.Client(), testConfig(ts.URL), nil)
	_, err := f.Fetch(context.Background(), "bad.tar.gz", workDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_StalledDownloadRetried(t *testing.T) {
	var calls int32
	archive := samplePackage(t, "PMC5")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-time.After(300 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		w.Write(archive)
	}))
	defer ts.Close()

	client := ts.Client()
	client.Timeout = 100 * time.Millisecond
	workDir := t.TempDir()

	f := New(client, testConfig(ts.URL), nil)
	docPath, err := f.Fetch(context.Background(), "PMC5.tar.gz", workDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "PMC5", "article.nxml"), docPath)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPermanent(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, permanent(live, context.DeadlineExceeded))
	assert.True(t, permanent(done, context.Canceled))
	assert.True(t, permanent(live, &StatusError{Code: http.StatusNotFound}))
	assert.False(t, permanent(live, &StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, permanent(live, &StatusError{Code: http.StatusBadGateway}))
}

func TestFetch_NoDocumentInArchive(t *testing.T) {
	srv := testutil.NewArchiveServer(t, map[string][]byte{
		"/PMC3.tar.gz": testutil.TarGz(t, testutil.Entry{Name: "PMC3/readme.txt", Body: "no article"}),
	})
	workDir := t.TempDir()

	cfg := testConfig(srv.URL)
	cfg.Retries = 0
	f := New(srv.Client(), cfg, nil)
	_, err := f.Fetch(context.Background(), "PMC3.tar.gz", workDir)
	assert.ErrorIs(t, err, ErrNoDocument)

	// The partial package is removed after the failed attempt.
	dirs, err := ArchiveDirs(workDir)
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := testutil.NewArchiveServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(srv.Client(), testConfig(srv.URL), nil)
	_, err := f.Fetch(ctx, "PMC1.tar.gz", t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcherURL(t *testing.T) {
	tests := []struct {
		base, loc, want string
	}{
		{"https://ftp.ncbi.nlm.nih.gov/pub/pmc/", "oa_package/08/e0/PMC13900.tar.gz", "https://ftp.ncbi.nlm.nih.gov/pub/pmc/oa_package/08/e0/PMC13900.tar.gz"},
		{"https://example.org/pmc", "/x.tar.gz", "https://example.org/pmc/x.tar.gz"},
	}
	for _, tt := range tests {
		f := New(http.DefaultClient, types.FetchConfig{BaseURL: tt.base}, nil)
		assert.Equal(t, tt.want, f.URL(tt.loc))
	}
}

func TestUnpack_RejectsTraversal(t *testing.T) {
	archive := testutil.TarGz(t, testutil.Entry{Name: "../evil.txt", Body: "x"})
	dest := t.TempDir()

	_, err := Unpack(bytes.NewReader(archive), dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
}

func TestUnpack_CountsRegularFiles(t *testing.T) {
	archive := testutil.TarGz(t,
		testutil.Entry{Name: "PMC9/"},
		testutil.Entry{Name: "PMC9/a.nxml", Body: "a"},
		testutil.Entry{Name: "PMC9/sub/b.pdf", Body: "b"},
	)
	n, err := Unpack(bytes.NewReader(archive), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFindDocument(t *testing.T) {
	dir := t.TempDir()

	_, err := FindDocument(dir)
	assert.ErrorIs(t, err, ErrNoDocument)

	write := func(rel string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	write("PMC1/a.nxml")
	write("other/ignored.nxml")
	got, err := FindDocument(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PMC1", "a.nxml"), got)

	write("PMC2/b.nxml")
	_, err = FindDocument(dir)
	assert.ErrorIs(t, err, ErrMultipleDocuments)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"PMC1/a.nxml", "PMC2/b.nxml", "urls.csv"} {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	require.NoError(t, Cleanup(dir))

	assert.NoDirExists(t, filepath.Join(dir, "PMC1"))
	assert.NoDirExists(t, filepath.Join(dir, "PMC2"))
	assert.FileExists(t, filepath.Join(dir, "urls.csv"))
}
