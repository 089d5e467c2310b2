package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

var (
	// ErrSuperseded is the cancellation cause of a poll replaced by a newer poll of the same job
	ErrSuperseded = fmt.Errorf("superseded by a newer poll of the same job: %w", context.Canceled)

	// ErrTrackerClosed is returned by Watch after Close, and is the cancellation cause of polls running at Close
	ErrTrackerClosed = fmt.Errorf("tracker closed: %w", context.Canceled)

	// ErrEmptyStatus is recorded as a fetch failure when the fetcher returns neither a job nor an error
	ErrEmptyStatus = errors.New("empty status record")
)

// PollingError is returned when status fetches failed too many times in a row.
// It describes the poller giving up, not the job failing.
type PollingError struct {
	JobID    jobs.JobID
	Failures int   // Consecutive failed fetches
	Attempts int   // Total fetches issued
	Err      error // Last fetch error
}

func (e *PollingError) Error() string {
	return fmt.Sprintf("polling job %s aborted after %d consecutive failures: %v", e.JobID, e.Failures, e.Err)
}

func (e *PollingError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the attempt budget ran out while the job was still active.
// The job may still be running on the backend.
type TimeoutError struct {
	JobID    jobs.JobID
	Attempts int
	Last     *jobs.Job // Last successfully observed record, nil if none
}

func (e *TimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("job %s still %s after %d attempts", e.JobID, e.Last.Status, e.Attempts)
	}
	return fmt.Sprintf("job %s: no terminal status after %d attempts", e.JobID, e.Attempts)
}
