package test

import (
	"net/http/httptest"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/upgrowplan/upgrowplan/internal/app"
	"github.com/upgrowplan/upgrowplan/internal/sandbox"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/poller"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// SetupServer starts the sandbox service and connects an API client and tracker to it
func SetupServer(s *Suite) {
	s.Store = sandbox.NewStore(s.Kinds, s.opts.stepsPerStage)
	s.App = app.NewApp(s.Store)

	// Create test server using adaptor to convert Fiber app to http.Handler
	s.Server = httptest.NewServer(adaptor.FiberApp(s.App))

	apiClient, err := client.NewClient(&client.Options{
		BaseURL: s.Server.URL,
		Timeout: testClientTimeout,
	})
	s.Require().NoError(err, "Failed to create API client")
	s.APIClient = apiClient

	s.Tracker = poller.NewTracker(s.APIClient, poller.Options{
		Interval:         s.opts.interval,
		MaxAttempts:      s.opts.maxAttempts,
		FailureThreshold: s.opts.failureThreshold,
	})
}
