package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/logger"
	"github.com/j-veylop/bidmanager-cli/internal/models"
)

// Fetcher downloads a report location to a local path with one strategy.
type Fetcher struct {
	Opener   Opener
	Strategy Strategy
	Progress ProgressFunc
	Now      func() time.Time
	Method   models.DownloadMethod
}

// NewFetcher builds a fetcher for the given method.
func NewFetcher(opener Opener, method models.DownloadMethod, progress ProgressFunc) (*Fetcher, error) {
	strategy, err := NewStrategy(method)
	if err != nil {
		return nil, err
	}
	return &Fetcher{Opener: opener, Strategy: strategy, Method: method, Progress: progress}, nil
}

// Fetch retrieves location into dst. The result carries size and elapsed
// time even on failure. Failures are logged with their cause and returned:
// dbm.ErrPartialDownload when fewer bytes than declared arrived,
// dbm.ErrTransport for open, read and write problems.
func (f *Fetcher) Fetch(ctx context.Context, location, dst string) (models.DownloadResult, error) {
	start := f.now()
	result := models.DownloadResult{Method: f.Method, Path: dst, Declared: -1}

	fail := func(err error) (models.DownloadResult, error) {
		result.Elapsed = f.now().Sub(start)
		logger.Error("report download failed",
			"method", f.Method.Label(), "path", dst, "bytes", result.Bytes, "error", err)
		return result, err
	}

	res, err := f.Opener.Open(ctx, location)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			logger.Error("failed to close report stream", "error", err)
		}
	}()
	result.Declared = res.Length

	n, err := f.Strategy.Fetch(ctx, res, dst, f.Progress)
	result.Bytes = n
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fail(fmt.Errorf("%w: %d bytes written to %s: %w", dbm.ErrPartialDownload, n, dst, err))
	case err != nil && !errors.Is(err, dbm.ErrTransport):
		return fail(fmt.Errorf("%w: %w", dbm.ErrTransport, err))
	case err != nil:
		return fail(err)
	case res.Length >= 0 && n != res.Length:
		return fail(fmt.Errorf("%w: got %d of %d bytes in %s", dbm.ErrPartialDownload, n, res.Length, dst))
	}

	result.Elapsed = f.now().Sub(start)
	logger.Info("report downloaded",
		"method", f.Method.Label(), "path", dst, "bytes", n, "declared", res.Length, "elapsed", result.Elapsed)
	return result, nil
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
