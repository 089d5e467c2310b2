package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/upgrowplan/upgrowplan/pkg/poller"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// Job flag names
const (
	flagKind        = "kind"
	flagJobID       = "id"
	flagParams      = "params"
	flagInterval    = "interval"
	flagMaxAttempts = "max-attempts"
	flagNoResult    = "no-result"
)

// ErrJobsUnsuccessful is returned by watch when at least one job did not complete
var ErrJobsUnsuccessful = errors.New("not all jobs completed")

// jobOutput represents the filtered output for a job status
type jobOutput struct {
	Kind         string  `json:"kind"`
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	CurrentStage string  `json:"current_stage,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// watchOutput represents the final report of a watched job
type watchOutput struct {
	jobOutput
	Phase      string           `json:"phase"`
	Attempts   int              `json:"attempts"`
	Elapsed    string           `json:"elapsed"`
	Result     json.RawMessage  `json:"result,omitempty"`
	Adjustment *jobs.Adjustment `json:"adjustment,omitempty"`
}

func newJobOutput(kind jobs.Kind, job *jobs.Job) jobOutput {
	return jobOutput{
		Kind:         kind.String(),
		ID:           job.ID.String(),
		Status:       job.Status.String(),
		Progress:     job.Progress,
		CurrentStage: job.CurrentStage,
		Error:        job.Error,
	}
}

// GetJobsCmd returns a new jobs command tree
func GetJobsCmd() *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Submit and track jobs",
	}

	jobsCmd.AddCommand(newSubmitJobCmd())
	jobsCmd.AddCommand(newJobStatusCmd())
	jobsCmd.AddCommand(newJobResultCmd())
	jobsCmd.AddCommand(newWatchJobsCmd())

	return jobsCmd
}

// kindFromFlag resolves the --kind flag against the configured kinds
func kindFromFlag(cmd *cobra.Command) (jobs.Kind, error) {
	name, _ := cmd.Flags().GetString(flagKind)
	return registry().Lookup(name)
}

func addKindFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagKind, "k", "", "Job kind: research, synthesis or plan")
	_ = cmd.MarkFlagRequired(flagKind)
}

func newSubmitJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := kindFromFlag(cmd)
			if err != nil {
				return err
			}

			var req jobs.SubmitRequest
			if raw, _ := cmd.Flags().GetString(flagParams); raw != "" {
				if err := json.Unmarshal([]byte(raw), &req.Params); err != nil {
					return fmt.Errorf("invalid --%s JSON: %w", flagParams, err)
				}
			}

			job, err := apiClient.SubmitJob(cmd.Context(), kind, req)
			if err != nil {
				return fmt.Errorf("error submitting job: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), newJobOutput(kind, job))
		},
	}
	addKindFlag(cmd)
	cmd.Flags().StringP(flagParams, "p", "", `Job parameters as a JSON object, e.g. '{"topic":"coffee shop"}'`)
	return cmd
}

func newJobStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch the current status of a job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := kindFromFlag(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString(flagJobID)

			job, err := apiClient.GetJob(cmd.Context(), kind, jobs.JobID(id))
			if err != nil {
				return fmt.Errorf("error fetching job: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), newJobOutput(kind, job))
		},
	}
	addKindFlag(cmd)
	cmd.Flags().StringP(flagJobID, "i", "", "Job ID")
	_ = cmd.MarkFlagRequired(flagJobID)
	return cmd
}

func newJobResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result",
		Short: "Fetch the result of a completed job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := kindFromFlag(cmd)
			if err != nil {
				return err
			}
			id, _ := cmd.Flags().GetString(flagJobID)

			job, err := apiClient.GetJob(cmd.Context(), kind, jobs.JobID(id))
			if err != nil {
				return fmt.Errorf("error fetching job: %w", err)
			}
			if job.Status != jobs.StatusCompleted {
				return fmt.Errorf("job %s is %s, results are only available for completed jobs", id, job.Status)
			}

			result, err := apiClient.GetJobResult(cmd.Context(), kind, jobs.JobID(id))
			if err != nil {
				return fmt.Errorf("error fetching job result: %w", err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, result, "", "  "); err != nil {
				return fmt.Errorf("error formatting response: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return err
		},
	}
	addKindFlag(cmd)
	cmd.Flags().StringP(flagJobID, "i", "", "Job ID")
	_ = cmd.MarkFlagRequired(flagJobID)
	return cmd
}

func newWatchJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll jobs until they complete, fail or need adjustment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := kindFromFlag(cmd)
			if err != nil {
				return err
			}

			ids, _ := cmd.Flags().GetStringSlice(flagJobID)
			ids = uniqueIDs(ids)
			if len(ids) == 0 {
				return fmt.Errorf("at least one --%s is required", flagJobID)
			}

			opts := cfg.PollerOptions()
			if cmd.Flags().Changed(flagInterval) {
				opts.Interval, _ = cmd.Flags().GetDuration(flagInterval)
			}
			if cmd.Flags().Changed(flagMaxAttempts) {
				opts.MaxAttempts, _ = cmd.Flags().GetInt(flagMaxAttempts)
			}
			noResult, _ := cmd.Flags().GetBool(flagNoResult)

			tracker := poller.NewTracker(apiClient, opts)
			defer tracker.Close()

			out := &syncWriter{w: cmd.OutOrStdout()}
			var (
				g            errgroup.Group
				mu           sync.Mutex
				unsuccessful []string
			)
			for _, id := range ids {
				jobID := jobs.JobID(id)
				g.Go(func() error {
					report, err := tracker.Watch(cmd.Context(), kind, jobID, poller.WatchOptions{
						SkipResult: noResult,
						Progress: func(job jobs.Job) {
							out.printf("[%s %s] %s\n", kind, jobID, job.Summary())
						},
					})
					if report != nil {
						if perr := out.printJSON(newWatchOutput(kind, report)); perr != nil && err == nil {
							err = perr
						}
						if !report.Outcome.Completed() {
							mu.Lock()
							unsuccessful = append(unsuccessful, fmt.Sprintf("%s (%s)", jobID, report.Outcome.Job.Status))
							mu.Unlock()
						}
					}
					if err != nil {
						out.printf("[%s %s] error: %v\n", kind, jobID, err)
						return fmt.Errorf("job %s: %w", jobID, err)
					}
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			if len(unsuccessful) > 0 {
				return fmt.Errorf("%w: %s", ErrJobsUnsuccessful, strings.Join(unsuccessful, ", "))
			}
			return nil
		},
	}
	addKindFlag(cmd)
	cmd.Flags().StringSliceP(flagJobID, "i", nil, "Job ID, repeat or comma separate to watch several jobs")
	_ = cmd.MarkFlagRequired(flagJobID)
	cmd.Flags().Duration(flagInterval, poller.DefaultInterval, "Delay between status polls")
	cmd.Flags().Int(flagMaxAttempts, poller.DefaultMaxAttempts, "Maximum status polls per job")
	cmd.Flags().Bool(flagNoResult, false, "Do not fetch the result of completed jobs")
	return cmd
}

func newWatchOutput(kind jobs.Kind, report *poller.Report) watchOutput {
	return watchOutput{
		jobOutput:  newJobOutput(kind, &report.Outcome.Job),
		Phase:      report.Outcome.Phase.String(),
		Attempts:   report.Outcome.Attempts,
		Elapsed:    report.Outcome.Elapsed.Round(time.Millisecond).String(),
		Result:     report.Result,
		Adjustment: report.Adjustment,
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// printJSON pretty prints v to w
func printJSON(w io.Writer, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(prettyJSON))
	return err
}

// syncWriter serializes output of concurrent watches
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, format, args...)
}

func (s *syncWriter) printJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return printJSON(s.w, v)
}
