// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads PMC open-access article packages and unpacks them
// into a working directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/citation-harvester/internal/httputil"
	"github.com/pdiddy/citation-harvester/pkg/types"
)

// throttleRetries bounds how often a single attempt waits out HTTP 429/503.
const throttleRetries = 3

// StatusError reports a non-200 response from the archive server.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// permanent reports whether retrying err cannot help. A done ctx ends the
// fetch; client timeouts on a live ctx are ordinary network failures.
// Client errors other than throttling are permanent.
func permanent(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 400 && se.Code < 500 && !httputil.Throttled(se.Code)
	}
	return false
}

// Fetcher retrieves article packages one at a time.
type Fetcher struct {
	client  *http.Client
	cfg     types.FetchConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New returns a Fetcher. Consecutive downloads, including retries, are
// spaced by cfg.DownloadDelay.
func New(client *http.Client, cfg types.FetchConfig, logger *zap.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.DownloadDelay > 0 {
		limit = rate.Every(cfg.DownloadDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// URL returns the download address of an archive location.
func (f *Fetcher) URL(location string) string {
	return strings.TrimRight(f.cfg.BaseURL, "/") + "/" + strings.TrimLeft(location, "/")
}

// Fetch downloads the archive at location, unpacks it into workDir, and
// returns the path of the article document it contained. A failed attempt
// is cleaned up and retried up to cfg.Retries times unless the failure is
// permanent.
func (f *Fetcher) Fetch(ctx context.Context, location, workDir string) (string, error) {
	url := f.URL(location)
	attempts := 1 + f.cfg.Retries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting to fetch %s: %w", location, err)
		}

		docPath, err := f.fetchOnce(ctx, url, workDir)
		if err == nil {
			return docPath, nil
		}
		lastErr = err

		if cleanErr := Cleanup(workDir); cleanErr != nil {
			f.logger.Warn("cleanup after failed fetch", zap.String("location", location), zap.Error(cleanErr))
		}
		if permanent(ctx, err) {
			return "", fmt.Errorf("fetching %s: %w", location, err)
		}
		if attempt < attempts {
			f.logger.Info("retrying fetch",
				zap.String("location", location),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}
	}
	if attempts == 1 {
		return "", fmt.Errorf("fetching %s: %w", location, lastErr)
	}
	return "", fmt.Errorf("fetching %s after %d attempts: %w", location, attempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, workDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/gzip, application/x-gzip, */*")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, throttleRetries)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, URL: url}
	}

	n, err := Unpack(resp.Body, workDir)
	if err != nil {
		return "", err
	}
	f.logger.Debug("unpacked archive", zap.String("url", url), zap.Int("files", n))

	return FindDocument(workDir)
}
