package lineitems

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/models"
)

type fakeAPI struct {
	downloadReq  *dbm.DownloadLineItemsRequest
	uploadReq    *dbm.UploadLineItemsRequest
	lineItems    string
	uploadStatus *dbm.UploadStatus
	err          error
}

func (f *fakeAPI) DownloadLineItems(_ context.Context, req dbm.DownloadLineItemsRequest) (*dbm.DownloadLineItemsResponse, error) {
	f.downloadReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &dbm.DownloadLineItemsResponse{LineItems: f.lineItems}, nil
}

func (f *fakeAPI) UploadLineItems(_ context.Context, req dbm.UploadLineItemsRequest) (*dbm.UploadLineItemsResponse, error) {
	f.uploadReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &dbm.UploadLineItemsResponse{UploadStatus: f.uploadStatus}, nil
}

type memRecorder struct {
	rows []models.Activity
}

func (m *memRecorder) RecordActivity(_ context.Context, a *models.Activity) error {
	m.rows = append(m.rows, *a)
	return nil
}

func TestBuildDownloadRequest(t *testing.T) {
	tests := []struct {
		name       string
		filterType string
		filterIDs  string
		wantType   dbm.FilterType
		wantIDs    []string
		wantErr    bool
	}{
		{"NoFilter", "", "", "", nil, false},
		{"Advertiser", "ADVERTISER_ID", "123,456", dbm.FilterAdvertiserID, []string{"123", "456"}, false},
		{"TrimsBlanks", "LINE_ITEM_ID", " 1, ,2,", dbm.FilterLineItemID, []string{"1", "2"}, false},
		{"TypeOnly", "INSERTION_ORDER_ID", "", dbm.FilterInsertionOrderID, nil, false},
		{"BadType", "BAD", "1", "", nil, true},
		{"IDsWithoutType", "", "1,2", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildDownloadRequest(tt.filterType, tt.filterIDs)
			if tt.wantErr {
				if !errors.Is(err, dbm.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildDownloadRequest failed: %v", err)
			}
			if req.FilterType != tt.wantType || !reflect.DeepEqual(req.FilterIDs, tt.wantIDs) {
				t.Errorf("got %+v", req)
			}
			if req.Format != FileFormat {
				t.Errorf("Format = %q", req.Format)
			}
		})
	}
}

func TestDownloader_Download(t *testing.T) {
	api := &fakeAPI{lineItems: "Line Item Id,Name\n1,first\n"}
	rec := &memRecorder{}
	var out bytes.Buffer
	d := &Downloader{API: api, Recorder: rec, Out: &out}

	path := filepath.Join(t.TempDir(), "nested", "line_items.csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("old content that is longer than the new one"), 0o644); err != nil {
		t.Fatal(err)
	}

	req, _ := BuildDownloadRequest("ADVERTISER_ID", "1")
	n, err := d.Download(context.Background(), path, req)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if n != int64(len(api.lineItems)) {
		t.Errorf("n = %d", n)
	}

	got, _ := os.ReadFile(path)
	if string(got) != api.lineItems {
		t.Errorf("file content = %q, existing file should be overwritten", got)
	}
	if api.downloadReq.FilterType != dbm.FilterAdvertiserID {
		t.Errorf("unexpected request %+v", api.downloadReq)
	}
	if !strings.HasPrefix(out.String(), "Download complete. [") {
		t.Errorf("output = %q", out.String())
	}
	if len(rec.rows) != 1 || rec.rows[0].Command != DownloadCommand || rec.rows[0].Failed() {
		t.Errorf("unexpected ledger rows %+v", rec.rows)
	}
}

func TestDownloader_APIError(t *testing.T) {
	api := &fakeAPI{err: &dbm.APIError{Operation: "downloadlineitems", Status: 500}}
	rec := &memRecorder{}
	d := &Downloader{API: api, Recorder: rec}
	path := filepath.Join(t.TempDir(), "line_items.csv")

	if _, err := d.Download(context.Background(), path, dbm.DownloadLineItemsRequest{}); !errors.Is(err, dbm.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be written on failure")
	}
	if len(rec.rows) != 1 || !rec.rows[0].Failed() {
		t.Errorf("failure should be recorded, got %+v", rec.rows)
	}
}

func TestUploader_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line_items.csv")
	if err := os.WriteFile(path, []byte("Line Item Id,Name\n1,first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	api := &fakeAPI{}
	var out bytes.Buffer
	u := &Uploader{API: api, Out: &out}

	if err := u.Upload(context.Background(), path, true); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if !api.uploadReq.DryRun || api.uploadReq.Format != FileFormat || api.uploadReq.LineItems == "" {
		t.Errorf("unexpected request %+v", api.uploadReq)
	}
	if !strings.Contains(out.String(), "dry run") {
		t.Errorf("output = %q", out.String())
	}
}

func TestUploader_RejectedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line_items.csv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	api := &fakeAPI{uploadStatus: &dbm.UploadStatus{Errors: []string{"Invalid header"}}}
	rec := &memRecorder{}
	var out bytes.Buffer
	u := &Uploader{API: api, Recorder: rec, Out: &out}

	if err := u.Upload(context.Background(), path, false); err == nil {
		t.Fatal("expected an error when the API reports row errors")
	}
	if !strings.Contains(out.String(), "Invalid header") {
		t.Errorf("errors should be printed, got %q", out.String())
	}
	if len(rec.rows) != 1 || rec.rows[0].Action != models.ActionUpload || !rec.rows[0].Failed() {
		t.Errorf("unexpected ledger rows %+v", rec.rows)
	}
}

func TestUploader_MissingFile(t *testing.T) {
	api := &fakeAPI{}
	u := &Uploader{API: api}

	err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), true)
	if !errors.Is(err, dbm.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if api.uploadReq != nil {
		t.Error("no remote call should be made for a missing file")
	}
}
