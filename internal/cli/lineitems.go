package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/lineitems"
)

const defaultLineItemsFile = "line_items.csv"

// NewDownloadLineItemsCommand builds the download-line-items command.
func NewDownloadLineItemsCommand(rt *Runtime) *cobra.Command {
	var (
		common     commonFlags
		filePath   string
		filterIDs  string
		filterType string
	)

	cmd := newRootCommand(rt, lineitems.DownloadCommand, "Download line items to a CSV file", &common)
	cmd.Long = "Downloads the line items visible to the account, optionally filtered by advertiser,\n" +
		"insertion order or line item ids, and writes them to a CSV file."
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		req, err := lineitems.BuildDownloadRequest(filterType, filterIDs)
		if err != nil {
			return err
		}

		e, err := rt.open(cmd.Context(), &common)
		if err != nil {
			return err
		}
		defer e.Close()

		d := &lineitems.Downloader{API: e.session.Service, Recorder: e.recorder(), Out: rt.Stdout}
		_, err = d.Download(cmd.Context(), filePath, req)
		return err
	}

	f := cmd.Flags()
	f.StringVar(&filePath, "file-path", defaultLineItemsFile, "Path of the CSV file to write")
	f.StringVar(&filterIDs, "filter-ids", "", "Comma separated ids to filter by")
	f.StringVar(&filterType, "filter-type", "", "Filter type: ADVERTISER_ID, INSERTION_ORDER_ID or LINE_ITEM_ID")

	return cmd
}

// NewUploadLineItemsCommand builds the upload-line-items command.
func NewUploadLineItemsCommand(rt *Runtime) *cobra.Command {
	var (
		common   commonFlags
		filePath string
		dryRun   bool
	)

	cmd := newRootCommand(rt, lineitems.UploadCommand, "Upload line items from a CSV file", &common)
	cmd.Long = "Uploads a line item CSV. By default the upload is a dry run that validates the\n" +
		"file without changing anything; pass --dry-run=false to apply it."
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(filePath); err != nil {
			return dbm.InvalidArgument("cannot read line items file: %v", err)
		}

		e, err := rt.open(cmd.Context(), &common)
		if err != nil {
			return err
		}
		defer e.Close()

		u := &lineitems.Uploader{API: e.session.Service, Recorder: e.recorder(), Out: rt.Stdout}
		return u.Upload(cmd.Context(), filePath, dryRun)
	}

	f := cmd.Flags()
	f.StringVar(&filePath, "file-path", defaultLineItemsFile, "Path of the CSV file to upload")
	f.BoolVar(&dryRun, "dry-run", true, "Validate only, without applying changes")

	return cmd
}
