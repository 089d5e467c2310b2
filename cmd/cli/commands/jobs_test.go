package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upgrowplan/upgrowplan/config"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client/mock"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// setupJobsTestCommand sets up a fresh jobs command with a mock client
func setupJobsTestCommand(t *testing.T) (*cobra.Command, *mock.MockClient, *bytes.Buffer) {
	mockClient := &mock.MockClient{}

	// Save the original package state and restore it after the test
	originalClient, originalCfg, originalKinds := apiClient, cfg, kinds
	t.Cleanup(func() {
		apiClient, cfg, kinds = originalClient, originalCfg, originalKinds
	})

	apiClient = mockClient
	cfg = config.Default()
	cfg.Poller.IntervalMs = 1
	kinds = nil

	outputBuf := &bytes.Buffer{}
	cmd := GetJobsCmd()
	cmd.SetOut(outputBuf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	return cmd, mockClient, outputBuf
}

func TestJobsCommand(t *testing.T) {
	cmd := GetJobsCmd()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"submit", "status", "result", "watch"}, names)
}

func TestSubmitJobCommand(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	mockClient.SubmitJobFn = func(_ context.Context, kind jobs.Kind, req jobs.SubmitRequest) (*jobs.Job, error) {
		assert.Equal(t, jobs.KindSynthesis, kind.Name)
		assert.Equal(t, "focus group", req.Params["topic"])
		return &jobs.Job{ID: "c0ffee", Status: jobs.StatusPending}, nil
	}

	cmd.SetArgs([]string{"submit", "-k", "synthesis", "-p", `{"topic":"focus group"}`})
	require.NoError(t, cmd.Execute())
	require.Len(t, mockClient.SubmitJobCalls, 1)

	var out jobOutput
	require.NoError(t, json.Unmarshal(outputBuf.Bytes(), &out))
	assert.Equal(t, "c0ffee", out.ID)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, "synthesis", out.Kind)
}

func TestSubmitJobCommand_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{
			name:   "unknown kind",
			args:   []string{"submit", "-k", "invoice"},
			errMsg: "unknown job kind",
		},
		{
			name:   "invalid params",
			args:   []string{"submit", "-k", "research", "-p", "{"},
			errMsg: "invalid --params JSON",
		},
		{
			name:   "missing kind",
			args:   []string{"submit"},
			errMsg: `required flag(s) "kind" not set`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, mockClient, _ := setupJobsTestCommand(t)
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Empty(t, mockClient.SubmitJobCalls)
		})
	}
}

func TestJobStatusCommand(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	mockClient.GetJobFn = func(_ context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
		assert.Equal(t, "research", kind.Collection)
		assert.Equal(t, jobs.JobID("17"), id)
		return &jobs.Job{ID: id, Status: jobs.StatusInProgress, Progress: 42, CurrentStage: "writing"}, nil
	}

	cmd.SetArgs([]string{"status", "-k", "research", "-i", "17"})
	require.NoError(t, cmd.Execute())
	require.Len(t, mockClient.GetJobCalls, 1)

	output := outputBuf.String()
	assert.Contains(t, output, `"status": "in_progress"`)
	assert.Contains(t, output, `"progress": 42`)
	assert.Contains(t, output, `"current_stage": "writing"`)
}

func TestJobStatusCommand_Error(t *testing.T) {
	cmd, mockClient, _ := setupJobsTestCommand(t)

	mockClient.GetJobFn = func(context.Context, jobs.Kind, jobs.JobID) (*jobs.Job, error) {
		return nil, &client.HTTPError{Code: http.StatusNotFound, Message: "Job not found"}
	}

	cmd.SetArgs([]string{"status", "-k", "research", "-i", "99"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
}

func TestJobResultCommand(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	mockClient.GetJobResultFn = func(_ context.Context, kind jobs.Kind, id jobs.JobID) (json.RawMessage, error) {
		assert.Equal(t, "detail", kind.ResultPath)
		return json.RawMessage(`{"id":17,"summary":"ok"}`), nil
	}

	cmd.SetArgs([]string{"result", "-k", "research", "-i", "17"})
	require.NoError(t, cmd.Execute())
	assert.Len(t, mockClient.GetJobResultCalls, 1)
	assert.Contains(t, outputBuf.String(), `"summary": "ok"`)
}

func TestJobResultCommand_NotCompleted(t *testing.T) {
	cmd, mockClient, _ := setupJobsTestCommand(t)

	mockClient.GetJobFn = func(_ context.Context, _ jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
		return &jobs.Job{ID: id, Status: jobs.StatusInProgress}, nil
	}

	cmd.SetArgs([]string{"result", "-k", "research", "-i", "17"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available for completed jobs")
	assert.Empty(t, mockClient.GetJobResultCalls)
}

func TestWatchJobsCommand(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	var calls int32
	mockClient.GetJobFn = func(_ context.Context, _ jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &jobs.Job{ID: id, Status: jobs.StatusInProgress, Progress: 50, CurrentStage: "analyzing"}, nil
		}
		return &jobs.Job{ID: id, Status: jobs.StatusCompleted, Progress: 100}, nil
	}

	cmd.SetArgs([]string{"watch", "-k", "plan", "-i", "p-1", "--interval", "1ms"})
	require.NoError(t, cmd.Execute())

	output := outputBuf.String()
	assert.Contains(t, output, "[plan p-1] in_progress 50% (analyzing)")
	assert.Contains(t, output, `"phase": "succeeded"`)
	assert.Contains(t, output, `"attempts": 2`)
	assert.Contains(t, output, `"result"`)
	assert.Len(t, mockClient.GetJobResultCalls, 1)
}

func TestWatchJobsCommand_SeveralJobs(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	cmd.SetArgs([]string{"watch", "-k", "research", "-i", "1,2", "-i", "3", "-i", "2", "--no-result"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, 3, mockClient.GetJobCallCount(), "duplicate ids are watched once")
	assert.Empty(t, mockClient.GetJobResultCalls)
	for _, id := range []string{`"id": "1"`, `"id": "2"`, `"id": "3"`} {
		assert.Contains(t, outputBuf.String(), id)
	}
}

func TestWatchJobsCommand_UnsuccessfulJobs(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	mockClient.GetJobFn = func(_ context.Context, _ jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
		switch id {
		case "1":
			return &jobs.Job{ID: id, Status: jobs.StatusFailed, Error: "model unavailable"}, nil
		case "2":
			var job jobs.Job
			err := json.Unmarshal([]byte(`{"id":2,"status":"needs_adjustment","error":"budget too low",
				"recommendations":[{"field":"budget","suggested":5000}]}`), &job)
			return &job, err
		default:
			return &jobs.Job{ID: id, Status: jobs.StatusCompleted, Progress: 100}, nil
		}
	}

	cmd.SetArgs([]string{"watch", "-k", "research", "-i", "1,2,3"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobsUnsuccessful))
	assert.Contains(t, err.Error(), "1 (failed)")
	assert.Contains(t, err.Error(), "2 (needs_adjustment)")

	output := outputBuf.String()
	assert.Contains(t, output, `"phase": "failed"`)
	assert.Contains(t, output, `"phase": "adjustment"`)
	assert.Contains(t, output, `"suggested": 5000`)
	assert.Len(t, mockClient.GetJobResultCalls, 1, "only the completed job fetches a result")
}

func TestWatchJobsCommand_PollingError(t *testing.T) {
	cmd, mockClient, outputBuf := setupJobsTestCommand(t)

	mockClient.GetJobFn = func(context.Context, jobs.Kind, jobs.JobID) (*jobs.Job, error) {
		return nil, &client.HTTPError{Code: http.StatusServiceUnavailable}
	}

	start := time.Now()
	cmd.SetArgs([]string{"watch", "-k", "research", "-i", "5"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, err.Error(), "job 5")
	assert.Equal(t, 3, mockClient.GetJobCallCount())
	assert.Contains(t, outputBuf.String(), "[research 5] error:")
}
