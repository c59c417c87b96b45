package report

import (
	"context"
	"fmt"
	"time"

	"github.com/j-veylop/bidmanager-cli/internal/dbm"
	"github.com/j-veylop/bidmanager-cli/internal/logger"
)

// DefaultPollInterval is the wait between status checks of a running query.
const DefaultPollInterval = 60 * time.Second

// PollEvent is emitted each time a poll finds the query still running.
type PollEvent struct {
	At      time.Time
	QueryID int64
	Attempt int
	Waited  time.Duration
}

// Poller waits for a query to stop running.
type Poller struct {
	Client   dbm.QueryGetter
	Sleep    func(ctx context.Context, d time.Duration) error
	OnPoll   func(PollEvent)
	Now      func() time.Time
	Interval time.Duration
	// MaxWait bounds the total time spent sleeping; zero means no bound.
	MaxWait time.Duration
}

// AwaitCompletion fetches the query until it is no longer running and
// returns that snapshot. With dontWait set, a running query fails with
// dbm.ErrStillRunning instead of sleeping. Fetch errors are returned as is.
func (p *Poller) AwaitCompletion(ctx context.Context, queryID int64, dontWait bool) (*dbm.Query, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var waited time.Duration
	for attempt := 1; ; attempt++ {
		q, err := p.Client.GetQuery(ctx, queryID)
		if err != nil {
			return nil, err
		}
		if q.Metadata == nil {
			return nil, fmt.Errorf("%w: %d", dbm.ErrQueryNotFound, queryID)
		}
		if !q.Metadata.Running {
			return q, nil
		}

		p.emit(PollEvent{At: p.now().UTC(), QueryID: queryID, Attempt: attempt, Waited: waited})

		if dontWait {
			return nil, fmt.Errorf("%w: %d", dbm.ErrStillRunning, queryID)
		}
		if p.MaxWait > 0 && waited+interval > p.MaxWait {
			return nil, fmt.Errorf("%w: query %d after %s", dbm.ErrWaitTimeout, queryID, waited)
		}
		if err := p.sleep(ctx, interval); err != nil {
			return nil, err
		}
		waited += interval
	}
}

func (p *Poller) emit(ev PollEvent) {
	if p.OnPoll != nil {
		p.OnPoll(ev)
		return
	}
	logger.Info("query is still running, download will resume automatically",
		"query_id", ev.QueryID, "attempt", ev.Attempt, "at", ev.At.Format(time.RFC1123Z))
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
