package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/upgrowplan/upgrowplan/internal/sandbox"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/poller"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// defaultTestInterval keeps integration polls fast
const defaultTestInterval = 2 * time.Millisecond

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - In-memory sandbox job store
//   - Real API server
//   - Real API client
//   - Tracker polling through the client
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	opts options

	// Server components
	App    *fiber.App
	Server *httptest.Server
	Store  *sandbox.Store
	Kinds  *jobs.Registry

	// Client components
	APIClient client.Client
	Tracker   *poller.Tracker

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

type options struct {
	stepsPerStage    int
	interval         time.Duration
	maxAttempts      int
	failureThreshold int
}

// Option configures a Suite
type Option func(*options)

// WithStepsPerStage sets how many status reads the sandbox spends in each stage
func WithStepsPerStage(n int) Option {
	return func(o *options) { o.stepsPerStage = n }
}

// WithPollerOptions overrides the tracker's polling options
func WithPollerOptions(interval time.Duration, maxAttempts, failureThreshold int) Option {
	return func(o *options) {
		o.interval = interval
		o.maxAttempts = maxAttempts
		o.failureThreshold = failureThreshold
	}
}

// NewSuite creates a new test suite with the given options.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	o := options{
		stepsPerStage: sandbox.DefaultStepsPerStage,
		interval:      defaultTestInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	kinds, err := jobs.NewRegistry()
	require.NoError(t, err)

	s := &Suite{
		t:          t,
		opts:       o,
		Kinds:      kinds,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	SetupServer(s)

	return s
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.Tracker != nil {
		s.Tracker.Close()
	}
	if s.Server != nil {
		s.Server.Close()
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// Kind resolves a registered job kind
func (s *Suite) Kind(name jobs.KindName) jobs.Kind {
	k, err := s.Kinds.Lookup(string(name))
	s.Require().NoError(err)
	return k
}

// Submit creates a sandbox job through the API client
func (s *Suite) Submit(name jobs.KindName, params map[string]interface{}) *jobs.Job {
	job, err := s.APIClient.SubmitJob(s.ctx, s.Kind(name), jobs.SubmitRequest{Params: params})
	s.Require().NoError(err, "Failed to submit %s job", name)
	return job
}
