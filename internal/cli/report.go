package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/bidmanager-cli/internal/config"
	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/models"
	"github.com/j-veylop/bidmanager-cli/internal/report"
	"github.com/j-veylop/bidmanager-cli/internal/ui/components"
)

const (
	defaultReportWindow = 24
	defaultDataRange    = "LAST_7_DAYS"
	progressBarWidth    = 30
)

// reportFlags are the get-latest-report inputs.
type reportFlags struct {
	outputDir      string
	queryID        int64
	reportWindow   int
	dataRange      string
	downloadMethod string
	dontWait       bool
	pollInterval   time.Duration
	maxWait        time.Duration
	notify         bool
}

// validated holds the parsed enum flags.
type validated struct {
	method    models.DownloadMethod
	dataRange dbm.DataRange
}

func (f *reportFlags) validate() (validated, error) {
	var v validated

	method, err := models.ParseDownloadMethod(f.downloadMethod)
	if err != nil {
		return v, err
	}
	dataRange, err := dbm.ParseDataRange(f.dataRange)
	if err != nil {
		return v, err
	}

	switch {
	case f.queryID < 0:
		return v, dbm.InvalidArgument("query id must not be negative, got %d", f.queryID)
	case f.reportWindow < 0:
		return v, dbm.InvalidArgument("report window must not be negative, got %d", f.reportWindow)
	case f.pollInterval <= 0:
		return v, dbm.InvalidArgument("poll interval must be positive, got %s", f.pollInterval)
	case f.maxWait < 0:
		return v, dbm.InvalidArgument("max wait must not be negative, got %s", f.maxWait)
	}

	v.method, v.dataRange = method, dataRange
	return v, nil
}

// NewGetLatestReportCommand builds the get-latest-report command and its
// history subcommand.
func NewGetLatestReportCommand(rt *Runtime) *cobra.Command {
	var (
		common commonFlags
		flags  reportFlags
	)

	cmd := newRootCommand(rt, report.CommandName, "Download the latest report of a query, or start a new run", &common)
	cmd.Long = "Without --query-id the saved queries are listed (on a terminal you are asked for an id first).\n" +
		"With --query-id the command waits for the query to finish, then downloads its latest report\n" +
		"to <output-directory>/<query-id>.csv when it ran within --report-window hours. An older\n" +
		"report starts a new run over --report-daterange instead; run the command again to fetch it."
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v, err := flags.validate()
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("query-id") && rt.terminal() && rt.AskQueryID != nil {
			if flags.queryID, err = rt.AskQueryID(); err != nil {
				return err
			}
		}

		flags.outputDir = config.ExpandHome(flags.outputDir)

		e, err := rt.open(cmd.Context(), &common)
		if err != nil {
			return err
		}
		defer e.Close()

		interval := flags.pollInterval
		if !cmd.Flags().Changed("poll-interval") && e.cfg.PollInterval > 0 {
			interval = e.cfg.PollInterval
		}

		return rt.runReport(cmd.Context(), e, flags, v, interval)
	}

	f := cmd.Flags()
	f.StringVar(&flags.outputDir, "output-directory", ".", "Directory the report is saved to")
	f.Int64Var(&flags.queryID, "query-id", 0, "Id of the query whose report to fetch; 0 lists queries")
	f.IntVar(&flags.reportWindow, "report-window", defaultReportWindow, "Maximum age in hours of a report considered fresh")
	f.StringVar(&flags.dataRange, "report-daterange", defaultDataRange, "Date range of a new run when the report is stale")
	f.StringVar(&flags.downloadMethod, "download-method", string(models.MethodWholeFile), "Download method: URLRETRIEVE, COPYFILEOBJ or READCHUNK")
	f.BoolVar(&flags.dontWait, "dont-wait", false, "Fail instead of waiting when the query is running")
	f.DurationVar(&flags.pollInterval, "poll-interval", report.DefaultPollInterval, "Wait between status checks of a running query (default DBM_POLL_INTERVAL or 1m0s)")
	f.DurationVar(&flags.maxWait, "max-wait", 0, "Give up waiting after this long; 0 waits indefinitely")
	f.BoolVar(&flags.notify, "notify", false, "Show a desktop notification when done")

	cmd.AddCommand(newHistoryCommand(rt))
	return cmd
}

func (rt *Runtime) runReport(ctx context.Context, e *env, flags reportFlags, v validated, interval time.Duration) error {
	var progress *components.DownloadProgress
	var onProgress report.ProgressFunc
	var onPoll func(report.PollEvent)
	var listQuery func(w io.Writer, queries []dbm.Query) error

	if rt.terminal() {
		progress = components.NewDownloadProgress(rt.Stderr, "downloading", progressBarWidth)
		onProgress = progress.Update
		onPoll = func(ev report.PollEvent) {
			_, _ = fmt.Fprintln(rt.Stderr, components.PollLine(ev))
		}
		listQuery = components.QueryTableWriter(rt.width())
	}

	fetcher, err := report.NewFetcher(e.session.Opener, v.method, onProgress)
	if err != nil {
		return err
	}

	runner := &report.Runner{
		Service: e.session.Service,
		Poller: &report.Poller{
			Client:   e.session.Service,
			Sleep:    rt.Sleep,
			OnPoll:   onPoll,
			Interval: interval,
			MaxWait:  flags.maxWait,
		},
		Fetcher:   fetcher,
		Recorder:  e.recorder(),
		Out:       rt.Stdout,
		ListQuery: listQuery,
	}
	if flags.notify {
		runner.Notifier = rt.Notifier
	}

	_, err = runner.Run(ctx, report.Options{
		OutputDir:   flags.outputDir,
		DataRange:   v.dataRange,
		QueryID:     flags.queryID,
		WindowHours: flags.reportWindow,
		DontWait:    flags.dontWait,
	})
	if progress != nil {
		progress.Finish()
	}
	return err
}
