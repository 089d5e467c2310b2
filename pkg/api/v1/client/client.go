// Package client provides the API client for the Upgrowplan research and synthesis job services
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/upgrowplan/upgrowplan/pkg/api/v1/routes"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for the job service API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job Endpoints
	SubmitJob(ctx context.Context, kind jobs.Kind, req jobs.SubmitRequest) (*jobs.Job, error)
	GetJob(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error)
	GetJobResult(ctx context.Context, kind jobs.Kind, id jobs.JobID) (json.RawMessage, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the job service
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// AuthToken is sent as a bearer token when set
	AuthToken string

	// Language is sent as Accept-Language, e.g. "en" or "ru"
	Language string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL:  routes.DefaultBaseURL,
		Timeout:  DefaultTimeout,
		Language: "en",
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL   string
	timeout   time.Duration
	authToken string
	language  string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		timeout:   timeout,
		authToken: opts.AuthToken,
		language:  opts.Language,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default, whichever is shorter
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	agent.Timeout(timeout)

	// Set common headers
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if c.language != "" {
		agent.Set("Accept-Language", c.language)
	}
	if c.authToken != "" {
		agent.Set("Authorization", "Bearer "+c.authToken)
	}

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, method, endpoint string, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return &NetworkError{Method: method, URL: endpoint, Err: errs[0]}
	}

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
			return &HTTPError{Code: statusCode, Message: errResp.Message, URL: endpoint}
		}
		return &HTTPError{Code: statusCode, Message: strings.TrimSpace(string(body)), URL: endpoint}
	}

	if v == nil {
		return nil
	}
	if len(body) == 0 {
		return fmt.Errorf("error decoding response from %s: %w", endpoint, ErrEmptyResponse)
	}

	if raw, ok := v.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, method, endpoint, response)
}

// HealthCheck checks the health of the job service
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	endpoint := routes.HealthCheckURL()
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// SubmitJob creates a job and returns its initial status record
func (c *APIClient) SubmitJob(ctx context.Context, kind jobs.Kind, req jobs.SubmitRequest) (*jobs.Job, error) {
	endpoint := routes.SubmitJobURL(kind)
	var response jobs.Job
	if err := c.executeRequest(ctx, http.MethodPost, endpoint, req, &response); err != nil {
		return nil, err
	}
	if response.ID == "" {
		return nil, fmt.Errorf("submit %s: response carries no job id", kind)
	}
	return &response, nil
}

// GetJob fetches the current status record of a job. It performs exactly one request.
func (c *APIClient) GetJob(ctx context.Context, kind jobs.Kind, id jobs.JobID) (*jobs.Job, error) {
	endpoint := routes.GetJobURL(kind, id)
	var response jobs.Job
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetJobResult fetches the result payload of a completed job. It performs exactly one request.
func (c *APIClient) GetJobResult(ctx context.Context, kind jobs.Kind, id jobs.JobID) (json.RawMessage, error) {
	endpoint := routes.GetJobResultURL(kind, id)
	var response json.RawMessage
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusConflict {
			return nil, fmt.Errorf("%w: %w", ErrResultNotReady, err)
		}
		return nil, err
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("job %s returned an empty result", id)
	}
	return response, nil
}
