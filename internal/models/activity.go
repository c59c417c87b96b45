package models

import "time"

// Activity actions recorded in the local ledger.
const (
	ActionList         = "list"
	ActionDownload     = "download"
	ActionRunTriggered = "run"
	ActionLineItems    = "line_items"
	ActionUpload       = "upload"
	ActionUploadDryRun = "upload_dry_run"
)

// Activity is one row of the local ledger (DB model).
type Activity struct {
	Timestamp  time.Time
	Command    string
	Action     string
	Method     string
	Path       string
	Error      string
	ID         int64
	QueryID    int64
	Bytes      int64
	DurationMs int64
}

// Failed reports whether the recorded operation ended in an error.
func (a *Activity) Failed() bool {
	return a.Error != ""
}
