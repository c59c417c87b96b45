// Package lineitems downloads and uploads line item CSV files.
package lineitems

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/logger"
	"github.com/j-veylop/bidmanager-cli/internal/models"
	"github.com/j-veylop/bidmanager-cli/internal/report"
)

// Ledger command names.
const (
	DownloadCommand = "download-line-items"
	UploadCommand   = "upload-line-items"
)

// FileFormat is the payload format exchanged with the API.
const FileFormat = "CSV"

// API is the subset of dbm.Service used here.
type API interface {
	DownloadLineItems(ctx context.Context, req dbm.DownloadLineItemsRequest) (*dbm.DownloadLineItemsResponse, error)
	UploadLineItems(ctx context.Context, req dbm.UploadLineItemsRequest) (*dbm.UploadLineItemsResponse, error)
}

// BuildDownloadRequest validates the optional filter and returns the request
// body. filterIDs is a comma separated list; blanks are dropped.
func BuildDownloadRequest(filterType, filterIDs string) (dbm.DownloadLineItemsRequest, error) {
	req := dbm.DownloadLineItemsRequest{Format: FileFormat}

	if filterType != "" {
		ft, err := dbm.ParseFilterType(filterType)
		if err != nil {
			return req, err
		}
		req.FilterType = ft
	}

	for _, id := range strings.Split(filterIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			req.FilterIDs = append(req.FilterIDs, id)
		}
	}

	if len(req.FilterIDs) > 0 && req.FilterType == "" {
		return req, dbm.InvalidArgument("filter ids require a filter type")
	}
	return req, nil
}

// Downloader writes the line item CSV to a file.
type Downloader struct {
	API      API
	Recorder report.Recorder
	Out      io.Writer
}

// Download fetches the line items matching req and writes them to path,
// replacing any existing file. It returns the number of bytes written.
func (d *Downloader) Download(ctx context.Context, path string, req dbm.DownloadLineItemsRequest) (int64, error) {
	start := time.Now()
	activity := &models.Activity{Command: DownloadCommand, Action: models.ActionLineItems, Path: path}

	n, err := d.download(ctx, path, req)
	activity.Bytes = n
	activity.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		activity.Error = err.Error()
	}
	record(ctx, d.Recorder, activity)
	if err != nil {
		return n, err
	}

	logger.Info("line items downloaded", "path", path, "bytes", n, "filter_type", req.FilterType)
	_, _ = fmt.Fprintf(out(d.Out), "Download complete. [ %s ]\n", time.Since(start).Round(time.Millisecond))
	return n, nil
}

func (d *Downloader) download(ctx context.Context, path string, req dbm.DownloadLineItemsRequest) (int64, error) {
	resp, err := d.API.DownloadLineItems(ctx, req)
	if err != nil {
		return 0, err
	}

	if err := ensureParent(path); err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(resp.LineItems), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write line items to %s: %w", path, err)
	}
	return int64(len(resp.LineItems)), nil
}

// Uploader sends a line item CSV back to the API.
type Uploader struct {
	API      API
	Recorder report.Recorder
	Out      io.Writer
}

// Upload reads path and uploads it. With dryRun no changes are persisted.
// Errors reported by the API are printed and returned as one error.
func (u *Uploader) Upload(ctx context.Context, path string, dryRun bool) error {
	start := time.Now()
	action := models.ActionUpload
	if dryRun {
		action = models.ActionUploadDryRun
	}
	activity := &models.Activity{Command: UploadCommand, Action: action, Path: path}

	err := u.upload(ctx, path, dryRun, activity)
	activity.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		activity.Error = err.Error()
	}
	record(ctx, u.Recorder, activity)
	return err
}

func (u *Uploader) upload(ctx context.Context, path string, dryRun bool, activity *models.Activity) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: cannot read line items file: %w", dbm.ErrInvalidArgument, err)
	}
	activity.Bytes = int64(len(data))

	resp, err := u.API.UploadLineItems(ctx, dbm.UploadLineItemsRequest{
		LineItems: string(data),
		Format:    FileFormat,
		DryRun:    dryRun,
	})
	if err != nil {
		return err
	}

	w := out(u.Out)
	if errs := resp.UploadStatus.AllErrors(); len(errs) > 0 {
		for _, e := range errs {
			_, _ = fmt.Fprintln(w, e)
		}
		return fmt.Errorf("upload rejected with %d error(s)", len(errs))
	}

	if dryRun {
		_, _ = fmt.Fprintln(w, "Upload successful (dry run, no changes were made).")
	} else {
		_, _ = fmt.Fprintln(w, "Upload successful.")
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func record(ctx context.Context, r report.Recorder, a *models.Activity) {
	if r == nil {
		return
	}
	if err := r.RecordActivity(ctx, a); err != nil {
		logger.Warn("failed to record activity", "action", a.Action, "error", err)
	}
}

func out(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
