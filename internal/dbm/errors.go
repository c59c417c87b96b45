package dbm

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the client, the report core and the CLIs.
// Callers match with errors.Is.
var (
	// ErrInvalidArgument marks input rejected before any remote call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueryNotFound is returned when a query has no metadata on the remote side.
	ErrQueryNotFound = errors.New("query not found")
	// ErrStillRunning is returned when the caller asked not to wait for a running query.
	ErrStillRunning = errors.New("query is still running")
	// ErrWaitTimeout is returned when a query is still running after the maximum wait.
	ErrWaitTimeout = fmt.Errorf("maximum wait exceeded: %w", ErrStillRunning)
	// ErrNoReport is returned when a query has never produced a report.
	ErrNoReport = errors.New("no report available")
	// ErrTransport marks network and API failures.
	ErrTransport = errors.New("transport error")
	// ErrPartialDownload marks a transfer that ended short of its declared length.
	ErrPartialDownload = errors.New("partial download")
)

// APIError is a non-2xx response from the Bid Manager API.
type APIError struct {
	Operation string
	Body      string
	Status    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.Status, e.Body)
}

// Unwrap lets errors.Is(err, ErrTransport) match API errors.
func (e *APIError) Unwrap() error {
	return ErrTransport
}

// InvalidArgument wraps a validation message in ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
