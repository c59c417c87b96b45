// Package report decides whether a query's latest report can be reused,
// waits for running queries, and downloads report files.
package report

import (
	"math"
	"time"
)

const msPerHour = int64(time.Hour / time.Millisecond)

// IsFresh reports whether a run at lastRunMs (epoch milliseconds) is strictly
// newer than now minus windowHours. The comparison is done on epoch
// milliseconds, so the local zone of now does not matter.
func IsFresh(lastRunMs int64, windowHours int, now time.Time) bool {
	return lastRunMs > cutoffMs(now.UnixMilli(), windowHours)
}

// cutoffMs is nowMs minus the window, saturating at math.MinInt64 when the
// window reaches past the representable range.
func cutoffMs(nowMs int64, windowHours int) int64 {
	hours := max(int64(windowHours), 0)
	if hours > math.MaxInt64/msPerHour {
		return math.MinInt64
	}
	window := hours * msPerHour
	if nowMs < math.MinInt64+window {
		return math.MinInt64
	}
	return nowMs - window
}

// Freshness binds IsFresh to a clock.
type Freshness struct {
	Now func() time.Time
}

// IsFresh evaluates lastRunMs against the window using the bound clock.
func (f Freshness) IsFresh(lastRunMs int64, windowHours int) bool {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return IsFresh(lastRunMs, windowHours, now())
}
