package poller

import (
	"time"

	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// Outcome is the terminal observation of a poll
type Outcome struct {
	Job      jobs.Job      // Record that ended the poll
	Phase    jobs.Phase    // PhaseSucceeded, PhaseFailed or PhaseAdjustment
	Attempts int           // Status fetches issued, including failed ones
	Elapsed  time.Duration // Wall clock time spent polling
}

// Completed reports whether the job finished successfully
func (o *Outcome) Completed() bool {
	return o.Phase == jobs.PhaseSucceeded
}

// Failed reports whether the job itself failed. Job.Error carries the reason.
func (o *Outcome) Failed() bool {
	return o.Phase == jobs.PhaseFailed
}

// NeedsAdjustment reports whether the job waits for corrective input
func (o *Outcome) NeedsAdjustment() bool {
	return o.Phase == jobs.PhaseAdjustment
}
