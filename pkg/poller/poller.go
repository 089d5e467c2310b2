// Package poller tracks long-running research and synthesis jobs until they reach a terminal status.
//
// A Poller fetches a job's status at a fixed interval, reports every successful
// observation to a progress callback and stops on the first terminal status.
// Transient fetch failures are tolerated up to a consecutive-failure threshold.
// A Tracker builds on it: it keeps at most one poll per job, and fetches the
// result payload once a job completes.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/upgrowplan/upgrowplan/internal/logger"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// Defaults for Options
const (
	DefaultInterval         = 5 * time.Second
	DefaultMaxAttempts      = 1440
	DefaultFailureThreshold = 3
)

// Fetcher retrieves the current status record of a job with a single request
type Fetcher interface {
	GetJob(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error)
}

// ProgressFunc receives every successfully fetched status record, in fetch order
type ProgressFunc func(job jobs.Job)

// Options configures a Poller. Zero values fall back to the defaults.
type Options struct {
	// Interval is the pause between the end of one fetch and the start of the next
	Interval time.Duration

	// MaxAttempts bounds the number of status fetches
	MaxAttempts int

	// FailureThreshold is the number of consecutive failed fetches that aborts polling
	FailureThreshold int
}

// DefaultOptions returns the default poller options
func DefaultOptions() Options {
	return Options{
		Interval:         DefaultInterval,
		MaxAttempts:      DefaultMaxAttempts,
		FailureThreshold: DefaultFailureThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	return o
}

// Poller repeatedly fetches a job's status until it reaches a terminal state.
// A Poller holds no per-job state: concurrent Poll calls for the same job each run
// their own loop and nothing is deduplicated. Use a Tracker to keep one poll per job.
type Poller struct {
	fetcher Fetcher
	opts    Options

	// wait blocks for d or until ctx is done
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Poller on top of fetcher
func New(fetcher Fetcher, opts Options) *Poller {
	return &Poller{
		fetcher: fetcher,
		opts:    opts.withDefaults(),
		wait:    waitTimer,
	}
}

// Options returns the effective options
func (p *Poller) Options() Options {
	return p.opts
}

// waitTimer sleeps on a timer that is always stopped before returning
func waitTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-timer.C:
		return nil
	}
}

// Poll fetches the status of job id until it is completed, failed or needs adjustment.
//
// The returned Outcome carries the terminal record; a failed job is an Outcome, not an error.
// Poll returns a *PollingError after FailureThreshold consecutive fetch failures,
// a *TimeoutError when MaxAttempts fetches saw no terminal status, and the
// context's cancellation cause when ctx is done. No fetch is issued after Poll returns.
func (p *Poller) Poll(ctx context.Context, kind jobs.Kind, id jobs.JobID, progress ProgressFunc) (*Outcome, error) {
	if id == "" {
		return nil, fmt.Errorf("job id is required")
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	failures := 0
	var last *jobs.Job

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.wait(ctx, p.opts.Interval); err != nil {
				return nil, p.canceled(ctx, id, attempt-1)
			}
		}
		if ctx.Err() != nil {
			return nil, p.canceled(ctx, id, attempt-1)
		}

		job, err := p.fetch(ctx, kind, id)
		if ctx.Err() != nil {
			return nil, p.canceled(ctx, id, attempt)
		}

		if err != nil {
			failures++
			logger.WarnWithFields("Status fetch failed", map[string]interface{}{
				"kind":     kind.Name,
				"job_id":   id,
				"attempt":  attempt,
				"failures": failures,
				"error":    err.Error(),
			})
			if failures >= p.opts.FailureThreshold {
				return nil, &PollingError{JobID: id, Failures: failures, Attempts: attempt, Err: err}
			}
			continue
		}

		failures = 0
		last = job
		logger.DebugWithFields("Status fetched", map[string]interface{}{
			"kind":     kind.Name,
			"job_id":   id,
			"attempt":  attempt,
			"status":   job.Status,
			"progress": job.Progress,
			"stage":    job.CurrentStage,
		})

		if progress != nil {
			progress(*job)
		}

		if phase := job.Status.Phase(); phase != jobs.PhaseActive {
			outcome := &Outcome{
				Job:      *job,
				Phase:    phase,
				Attempts: attempt,
				Elapsed:  time.Since(start),
			}
			logger.InfoWithFields("Job reached terminal status", map[string]interface{}{
				"kind":     kind.Name,
				"job_id":   id,
				"status":   job.Status,
				"attempts": attempt,
				"elapsed":  outcome.Elapsed.String(),
			})
			return outcome, nil
		}
	}

	return nil, &TimeoutError{JobID: id, Attempts: p.opts.MaxAttempts, Last: last}
}

// fetch runs one status fetch. It returns as soon as ctx is done, even if the fetch itself hangs;
// the fetch goroutine then finishes on its own within the client's request timeout.
func (p *Poller) fetch(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
	type result struct {
		job *jobs.Job
		err error
	}

	ch := make(chan result, 1)
	go func() {
		job, err := p.fetcher.GetJob(ctx, kind, id)
		ch <- result{job: job, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case r := <-ch:
		if r.err == nil && r.job == nil {
			return nil, ErrEmptyStatus
		}
		return r.job, r.err
	}
}

func (p *Poller) canceled(ctx context.Context, id jobs.JobID, attempts int) error {
	cause := context.Cause(ctx)
	logger.DebugWithFields("Polling canceled", map[string]interface{}{
		"job_id":   id,
		"attempts": attempts,
		"cause":    cause.Error(),
	})
	return fmt.Errorf("polling job %s stopped after %d attempts: %w", id, attempts, cause)
}
