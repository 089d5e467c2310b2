package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/upgrowplan/upgrowplan/internal/logger"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// Report is the result of watching one job
type Report struct {
	Kind    jobs.Kind
	Outcome *Outcome

	// Result is the raw result payload, set only for completed jobs
	Result json.RawMessage

	// Adjustment is set only for jobs that need adjustment
	Adjustment *jobs.Adjustment
}

// WatchOptions configures a single Watch call
type WatchOptions struct {
	// Progress receives every successful status observation
	Progress ProgressFunc

	// SkipResult disables the result fetch for completed jobs
	SkipResult bool
}

type watchKey struct {
	collection string
	id         jobs.JobID
}

type activeWatch struct {
	cancel context.CancelCauseFunc
	done   chan struct{}

	// inProgress is set while the watch runs its progress callback
	inProgress atomic.Bool
}

// stop cancels the watch and waits for its loop to exit
func (w *activeWatch) stop(cause error) {
	w.cancel(cause)
	w.wait()
}

// wait blocks until the watch loop exits. While the progress callback runs it returns at once,
// so a callback can stop its own watch; the canceled loop issues no further fetch.
func (w *activeWatch) wait() {
	if w.inProgress.Load() {
		return
	}
	<-w.done
}

// progress wraps fn so that stop can tell when it runs inside the callback
func (w *activeWatch) progress(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(job jobs.Job) {
		w.inProgress.Store(true)
		defer w.inProgress.Store(false)
		fn(job)
	}
}

// Tracker watches jobs with at most one active poll per job.
// Starting a watch for a job that is already watched cancels the older watch
// and waits for its loop to stop before the new one issues its first fetch.
// Cancel, Close and Watch may be called from a progress callback.
type Tracker struct {
	client client.Client
	poller *Poller

	mu     sync.Mutex
	active map[watchKey]*activeWatch
	closed bool
}

// NewTracker creates a Tracker polling through c with the given options
func NewTracker(c client.Client, opts Options) *Tracker {
	return &Tracker{
		client: c,
		poller: New(c, opts),
		active: make(map[watchKey]*activeWatch),
	}
}

// Watch polls job id until it reaches a terminal status.
// For a completed job the result is fetched exactly once; a failed result fetch is returned
// as an error together with the report. Jobs that need adjustment get an Adjustment and no result fetch.
func (t *Tracker) Watch(ctx context.Context, kind jobs.Kind, id jobs.JobID, opts WatchOptions) (*Report, error) {
	key := watchKey{collection: kind.Collection, id: id}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	w := &activeWatch{cancel: cancel, done: make(chan struct{})}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackerClosed
	}
	prev := t.active[key]
	t.active[key] = w
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.active[key] == w {
			delete(t.active, key)
		}
		t.mu.Unlock()
		close(w.done)
	}()

	if prev != nil {
		logger.InfoWithFields("Replacing active watch", map[string]interface{}{
			"kind":   kind.Name,
			"job_id": id,
		})
		prev.cancel(ErrSuperseded)
		if !prev.inProgress.Load() {
			select {
			case <-prev.done:
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			}
		}
	}

	outcome, err := t.poller.Poll(ctx, kind, id, w.progress(opts.Progress))
	if err != nil {
		return nil, err
	}

	report := &Report{Kind: kind, Outcome: outcome}

	switch outcome.Phase {
	case jobs.PhaseSucceeded:
		if opts.SkipResult {
			return report, nil
		}
		result, err := t.client.GetJobResult(ctx, kind, id)
		if err != nil {
			return report, fmt.Errorf("fetching result of job %s: %w", id, err)
		}
		report.Result = result
	case jobs.PhaseAdjustment:
		adj, err := jobs.AdjustmentFor(kind, outcome.Job)
		if err != nil {
			logger.WarnWithFields("Could not decode adjustment recommendations", map[string]interface{}{
				"kind":   kind.Name,
				"job_id": id,
				"error":  err.Error(),
			})
		}
		report.Adjustment = &adj
	}

	return report, nil
}

// Cancel stops the active watch of a job, if any. It reports whether a watch was canceled.
// Cancel waits for the watch to stop unless it is called from that watch's progress callback.
func (t *Tracker) Cancel(kind jobs.Kind, id jobs.JobID) bool {
	t.mu.Lock()
	w, ok := t.active[watchKey{collection: kind.Collection, id: id}]
	t.mu.Unlock()
	if !ok {
		return false
	}
	w.stop(context.Canceled)
	return true
}

// Active returns the number of running watches
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Close cancels every running watch and waits for them to stop. Later Watch calls fail with ErrTrackerClosed.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	watches := make([]*activeWatch, 0, len(t.active))
	for _, w := range t.active {
		watches = append(watches, w)
	}
	t.mu.Unlock()

	for _, w := range watches {
		w.cancel(ErrTrackerClosed)
	}
	for _, w := range watches {
		w.wait()
	}
}
