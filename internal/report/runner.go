package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/logger"
	"github.com/j-veylop/bidmanager-cli/internal/models"
)

// CommandName identifies this orchestrator in the activity ledger.
const CommandName = "get-latest-report"

// Outcome is the terminal state of a Run.
type Outcome int

const (
	// OutcomeListed means queries were listed and nothing was downloaded.
	OutcomeListed Outcome = iota
	// OutcomeDownloaded means a fresh report was written to disk.
	OutcomeDownloaded
	// OutcomeRunTriggered means the report was stale and a new run was started.
	OutcomeRunTriggered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeListed:
		return "listed"
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeRunTriggered:
		return "run triggered"
	default:
		return "unknown"
	}
}

// Options are the per-invocation inputs of Run.
type Options struct {
	OutputDir   string
	DataRange   dbm.DataRange
	QueryID     int64
	WindowHours int
	DontWait    bool
}

// Result describes what Run did.
type Result struct {
	Query    *dbm.Query
	Download *models.DownloadResult
	Queries  []dbm.Query
	Outcome  Outcome
}

// Recorder persists activity rows.
type Recorder interface {
	RecordActivity(ctx context.Context, a *models.Activity) error
}

// Notifier announces finished work to the user.
type Notifier interface {
	Notify(title, body string) error
}

// Runner sequences listing, polling, freshness and download/trigger.
type Runner struct {
	Service   dbm.Service
	Poller    *Poller
	Fetcher   *Fetcher
	Recorder  Recorder
	Notifier  Notifier
	Out       io.Writer
	ListQuery func(w io.Writer, queries []dbm.Query) error
	Freshness Freshness
}

// ReportPath is where the report of queryID lands inside dir.
func ReportPath(dir string, queryID int64) string {
	return filepath.Join(dir, strconv.FormatInt(queryID, 10)+".csv")
}

// Run lists queries when opts.QueryID is zero. Otherwise it waits for the
// query to finish, downloads the latest report when it is inside the window,
// or starts a new run when it is not. A triggered run is never downloaded in
// the same invocation; the caller fetches it on a later run.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.QueryID == 0 {
		return r.list(ctx)
	}

	start := time.Now()
	q, err := r.Poller.AwaitCompletion(ctx, opts.QueryID, opts.DontWait)
	if err != nil {
		r.record(ctx, &models.Activity{Action: models.ActionDownload, QueryID: opts.QueryID, Error: err.Error(), DurationMs: since(start)})
		return nil, err
	}

	if !q.Metadata.HasReport() {
		err := fmt.Errorf("%w: query %d has not produced a report", dbm.ErrNoReport, opts.QueryID)
		r.record(ctx, &models.Activity{Action: models.ActionDownload, QueryID: opts.QueryID, Error: err.Error(), DurationMs: since(start)})
		return nil, err
	}

	if r.Freshness.IsFresh(int64(q.Metadata.LatestReportRunTimeMs), opts.WindowHours) {
		return r.download(ctx, q, opts)
	}
	return r.trigger(ctx, q, opts)
}

func (r *Runner) list(ctx context.Context) (*Result, error) {
	queries, err := r.Service.ListQueries(ctx)
	if err != nil {
		return nil, err
	}

	list := r.ListQuery
	if list == nil {
		list = WriteQueryList
	}
	if err := list(r.out(), queries); err != nil {
		return nil, fmt.Errorf("failed to print queries: %w", err)
	}
	r.record(ctx, &models.Activity{Action: models.ActionList})
	return &Result{Outcome: OutcomeListed, Queries: queries}, nil
}

func (r *Runner) download(ctx context.Context, q *dbm.Query, opts Options) (*Result, error) {
	location := q.Metadata.GoogleCloudStoragePathForLatestReport
	if location == "" {
		err := fmt.Errorf("%w: query %d has no report location", dbm.ErrNoReport, q.ID())
		r.record(ctx, &models.Activity{Action: models.ActionDownload, QueryID: q.ID(), Error: err.Error()})
		return nil, err
	}

	dst := ReportPath(opts.OutputDir, q.ID())
	res, err := r.Fetcher.Fetch(ctx, location, dst)
	activity := &models.Activity{
		Action:     models.ActionDownload,
		QueryID:    q.ID(),
		Method:     string(res.Method),
		Path:       dst,
		Bytes:      res.Bytes,
		DurationMs: res.Elapsed.Milliseconds(),
	}
	if err != nil {
		activity.Error = err.Error()
		r.record(ctx, activity)
		return nil, err
	}
	r.record(ctx, activity)

	size := "unknown size"
	if res.Declared >= 0 {
		size = strconv.FormatInt(res.Declared, 10) + " bytes"
	}
	_, _ = fmt.Fprintf(r.out(), "Download complete: %s (%s, %s in %s)\n", dst, res.Method.Label(), size, res.Elapsed.Round(time.Millisecond))
	r.notify(fmt.Sprintf("Report %d downloaded", q.ID()), dst)

	return &Result{Outcome: OutcomeDownloaded, Query: q, Download: &res}, nil
}

func (r *Runner) trigger(ctx context.Context, q *dbm.Query, opts Options) (*Result, error) {
	start := time.Now()
	err := r.Service.RunQuery(ctx, q.ID(), dbm.RunQueryRequest{DataRange: string(opts.DataRange)})
	activity := &models.Activity{Action: models.ActionRunTriggered, QueryID: q.ID(), DurationMs: since(start)}
	if err != nil {
		activity.Error = err.Error()
		r.record(ctx, activity)
		return nil, err
	}
	r.record(ctx, activity)

	_, _ = fmt.Fprintf(r.out(),
		"No report for queryId %d in the last %d hours. A new run was started for %s; run again to download it.\n",
		q.ID(), opts.WindowHours, opts.DataRange)
	r.notify(fmt.Sprintf("Report %d is running", q.ID()), fmt.Sprintf("Started a %s run", opts.DataRange))

	return &Result{Outcome: OutcomeRunTriggered, Query: q}, nil
}

// WriteQueryList prints "Id<TAB><TAB>Name" followed by one line per query.
func WriteQueryList(w io.Writer, queries []dbm.Query) error {
	if len(queries) == 0 {
		_, err := fmt.Fprintln(w, "No queries exist.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Id\t\tName"); err != nil {
		return err
	}
	for i := range queries {
		title := ""
		if queries[i].Metadata != nil {
			title = queries[i].Metadata.Title
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", queries[i].ID(), title); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) record(ctx context.Context, a *models.Activity) {
	if r.Recorder == nil {
		return
	}
	a.Command = CommandName
	if err := r.Recorder.RecordActivity(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("failed to record activity", "action", a.Action, "error", err)
	}
}

func (r *Runner) notify(title, body string) {
	if r.Notifier == nil {
		return
	}
	if err := r.Notifier.Notify(title, body); err != nil {
		logger.Debug("notification failed", "error", err)
	}
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
