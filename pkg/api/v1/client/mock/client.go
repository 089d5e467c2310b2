package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// MockClient implements the Client interface for testing.
// It is safe for concurrent use; read the call slices only after the code under test has returned,
// or use the *CallCount helpers while it is still running.
type MockClient struct {
	// Function fields that can be set to mock behavior
	HealthCheckFn  func(ctx context.Context) (map[string]string, error)
	SubmitJobFn    func(ctx context.Context, kind jobs.Kind, req jobs.SubmitRequest) (*jobs.Job, error)
	GetJobFn       func(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error)
	GetJobResultFn func(ctx context.Context, kind jobs.Kind, id jobs.JobID) (json.RawMessage, error)

	mu sync.Mutex

	// Call tracking for verification
	HealthCheckCalls []struct {
		Ctx context.Context
	}
	SubmitJobCalls []struct {
		Ctx  context.Context
		Kind jobs.Kind
		Req  jobs.SubmitRequest
	}
	GetJobCalls []struct {
		Ctx  context.Context
		Kind jobs.Kind
		ID   jobs.JobID
	}
	GetJobResultCalls []struct {
		Ctx  context.Context
		Kind jobs.Kind
		ID   jobs.JobID
	}
}

// Ensure MockClient implements Client interface
var _ client.Client = (*MockClient)(nil)

// HealthCheck mocks the HealthCheck method
func (m *MockClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	m.HealthCheckCalls = append(m.HealthCheckCalls, struct {
		Ctx context.Context
	}{
		Ctx: ctx,
	})
	m.mu.Unlock()

	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}

	return map[string]string{"status": "healthy"}, nil
}

// SubmitJob mocks the SubmitJob method
func (m *MockClient) SubmitJob(ctx context.Context, kind jobs.Kind, req jobs.SubmitRequest) (*jobs.Job, error) {
	m.mu.Lock()
	m.SubmitJobCalls = append(m.SubmitJobCalls, struct {
		Ctx  context.Context
		Kind jobs.Kind
		Req  jobs.SubmitRequest
	}{
		Ctx:  ctx,
		Kind: kind,
		Req:  req,
	})
	m.mu.Unlock()

	if m.SubmitJobFn != nil {
		return m.SubmitJobFn(ctx, kind, req)
	}

	// Default mock implementation
	return &jobs.Job{
		ID:     "1",
		Status: jobs.StatusPending,
	}, nil
}

// GetJob mocks the GetJob method
func (m *MockClient) GetJob(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
	m.mu.Lock()
	m.GetJobCalls = append(m.GetJobCalls, struct {
		Ctx  context.Context
		Kind jobs.Kind
		ID   jobs.JobID
	}{
		Ctx:  ctx,
		Kind: kind,
		ID:   id,
	})
	m.mu.Unlock()

	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, kind, id)
	}

	// Default mock implementation
	return &jobs.Job{
		ID:       id,
		Status:   jobs.StatusCompleted,
		Progress: 100,
	}, nil
}

// GetJobResult mocks the GetJobResult method
func (m *MockClient) GetJobResult(ctx context.Context, kind jobs.Kind, id jobs.JobID) (json.RawMessage, error) {
	m.mu.Lock()
	m.GetJobResultCalls = append(m.GetJobResultCalls, struct {
		Ctx  context.Context
		Kind jobs.Kind
		ID   jobs.JobID
	}{
		Ctx:  ctx,
		Kind: kind,
		ID:   id,
	})
	m.mu.Unlock()

	if m.GetJobResultFn != nil {
		return m.GetJobResultFn(ctx, kind, id)
	}

	// Default mock implementation
	return json.RawMessage(`{"id":"` + id.String() + `"}`), nil
}

// GetJobCallCount returns the number of GetJob calls so far
func (m *MockClient) GetJobCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetJobCalls)
}

// GetJobResultCallCount returns the number of GetJobResult calls so far
func (m *MockClient) GetJobResultCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetJobResultCalls)
}
