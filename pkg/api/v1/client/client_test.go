// Package client provides unit tests for the job service API client.
//
// These tests use httptest to create a server that simulates the job service,
// allowing the client to be tested without a running backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name       string
		opts       *Options
		wantErr    bool
		validateFn func(t *testing.T, client Client)
	}{
		{
			name: "nil options",
			opts: nil,
			validateFn: func(t *testing.T, client Client) {
				apiClient, ok := client.(*APIClient)
				require.True(t, ok, "client should be an *APIClient")

				expectedDefaults := DefaultOptions()
				assert.Equal(t, expectedDefaults.BaseURL, apiClient.baseURL)
				assert.Equal(t, expectedDefaults.Timeout, apiClient.timeout)
				assert.Equal(t, "en", apiClient.language)
			},
		},
		{
			name: "valid options",
			opts: &Options{
				BaseURL:  "http://example.com/api/",
				Timeout:  10 * time.Second,
				Language: "ru",
			},
			validateFn: func(t *testing.T, client Client) {
				apiClient, ok := client.(*APIClient)
				require.True(t, ok, "client should be an *APIClient")
				assert.Equal(t, "http://example.com/api", apiClient.baseURL)
				assert.Equal(t, 10*time.Second, apiClient.timeout)
				assert.Equal(t, "ru", apiClient.language)
			},
		},
		{
			name: "zero timeout falls back to default",
			opts: &Options{BaseURL: "https://example.com"},
			validateFn: func(t *testing.T, client Client) {
				assert.Equal(t, DefaultTimeout, client.(*APIClient).timeout)
			},
		},
		{
			name:    "invalid base URL",
			opts:    &Options{BaseURL: "://invalid-url"},
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			opts:    &Options{BaseURL: "ftp://example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, client)
			if tt.validateFn != nil {
				tt.validateFn(t, client)
			}
		})
	}
}

func setupTestServer(t *testing.T, statusCalls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/research":
			var req jobs.SubmitRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.Params["topic"] != "bakery" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"error":"invalid_input","message":"topic is required","status":422}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 17, "status": "pending", "progress": 0}`))
		case r.URL.Path == "/research/17":
			if statusCalls != nil {
				atomic.AddInt32(statusCalls, 1)
			}
			assert.Equal(t, "ru", r.Header.Get("Accept-Language"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id": 17, "status": "in_progress", "progress": 40, "current_stage": "analyzing", "topic": "bakery"}`))
		case r.URL.Path == "/research/17/detail":
			_, _ = w.Write([]byte(`{"id": 17, "topic": "bakery", "summary": "Demand is stable"}`))
		case r.URL.Path == "/research/18/detail":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"conflict","message":"job is in_progress","status":409}`))
		case r.URL.Path == "/research/19":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`upstream unavailable`))
		case r.URL.Path == "/research/20":
			_, _ = w.Write([]byte(`{"id": 20, "status": "exploded"}`))
		case r.URL.Path == "/research/21":
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{"id": 21, "status": "pending"}`))
		case r.URL.Path == "/research/22":
		case r.Method == http.MethodPost && r.URL.Path == "/synthesis":
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found","message":"job not found","status":404}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewClient(&Options{
		BaseURL:   baseURL,
		Timeout:   time.Second,
		AuthToken: "secret",
		Language:  "ru",
	})
	require.NoError(t, err)
	return c
}

func TestAPIClient_GetJob(t *testing.T) {
	var statusCalls int32
	server := setupTestServer(t, &statusCalls)
	c := newTestClient(t, server.URL)
	research, err := jobs.LookupKind("research")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		job, err := c.GetJob(context.Background(), research, "17")
		require.NoError(t, err)
		assert.Equal(t, jobs.JobID("17"), job.ID)
		assert.Equal(t, jobs.StatusInProgress, job.Status)
		assert.Equal(t, "analyzing", job.CurrentStage)
		assert.Contains(t, job.Fields, "topic")
		assert.Equal(t, int32(1), atomic.LoadInt32(&statusCalls), "exactly one request per fetch")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.GetJob(context.Background(), research, "404")
		require.Error(t, err)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
		assert.Equal(t, "job not found", httpErr.Message)
		assert.True(t, IsNotFound(err))
	})

	t.Run("non json error body", func(t *testing.T) {
		_, err := c.GetJob(context.Background(), research, "19")
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
		assert.Equal(t, "upstream unavailable", httpErr.Message)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := c.GetJob(context.Background(), research, "20")
		require.Error(t, err)
		assert.True(t, errors.Is(err, jobs.ErrUnknownStatus))
		assert.Contains(t, err.Error(), "error decoding response")
	})

	t.Run("empty body", func(t *testing.T) {
		job, err := c.GetJob(context.Background(), research, "22")
		require.Error(t, err)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.Contains(t, err.Error(), "/research/22")
	})

	t.Run("canceled context sends nothing", func(t *testing.T) {
		before := atomic.LoadInt32(&statusCalls)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.GetJob(ctx, research, "17")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, before, atomic.LoadInt32(&statusCalls))
	})

	t.Run("timeout", func(t *testing.T) {
		slow, err := NewClient(&Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
		require.NoError(t, err)

		_, err = slow.GetJob(context.Background(), research, "21")
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr), "got %v", err)
		assert.True(t, netErr.Timeout())
	})
}

func TestAPIClient_Unreachable(t *testing.T) {
	// Reserve a port and close it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := NewClient(&Options{BaseURL: "http://" + addr, Timeout: time.Second})
	require.NoError(t, err)
	research, err := jobs.LookupKind("research")
	require.NoError(t, err)

	_, err = c.GetJob(context.Background(), research, "1")
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Equal(t, http.MethodGet, netErr.Method)
	assert.Equal(t, "/research/1", netErr.URL)
}

func TestAPIClient_SubmitJob(t *testing.T) {
	server := setupTestServer(t, nil)
	c := newTestClient(t, server.URL)
	research, err := jobs.LookupKind("research")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		job, err := c.SubmitJob(context.Background(), research, jobs.SubmitRequest{
			Params: map[string]interface{}{"topic": "bakery"},
		})
		require.NoError(t, err)
		assert.Equal(t, jobs.JobID("17"), job.ID)
		assert.Equal(t, jobs.StatusPending, job.Status)
	})

	t.Run("validation error", func(t *testing.T) {
		_, err := c.SubmitJob(context.Background(), research, jobs.SubmitRequest{})
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusUnprocessableEntity, httpErr.Code)
		assert.Equal(t, "topic is required", httpErr.Message)
	})

	t.Run("empty body", func(t *testing.T) {
		synthesis, err := jobs.LookupKind("synthesis")
		require.NoError(t, err)
		job, err := c.SubmitJob(context.Background(), synthesis, jobs.SubmitRequest{})
		assert.Nil(t, job)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestAPIClient_GetJobResult(t *testing.T) {
	server := setupTestServer(t, nil)
	c := newTestClient(t, server.URL)
	research, err := jobs.LookupKind("research")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		raw, err := c.GetJobResult(context.Background(), research, "17")
		require.NoError(t, err)

		detail, err := DecodeResult[jobs.ResearchDetail](raw)
		require.NoError(t, err)
		assert.Equal(t, jobs.JobID("17"), detail.ID)
		assert.Equal(t, "Demand is stable", detail.Summary)
	})

	t.Run("not ready", func(t *testing.T) {
		_, err := c.GetJobResult(context.Background(), research, "18")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultNotReady)

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusConflict, httpErr.Code)
	})
}

func TestAPIClient_HealthCheck(t *testing.T) {
	server := setupTestServer(t, nil)
	c := newTestClient(t, server.URL)

	resp, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", resp["status"])
}

func TestDecodeResult(t *testing.T) {
	_, err := DecodeResult[jobs.SynthesisResult](nil)
	assert.Error(t, err)

	_, err = DecodeResult[jobs.SynthesisResult](json.RawMessage(`{"id": [}`))
	assert.Error(t, err)

	res, err := DecodeResult[jobs.SynthesisResult](json.RawMessage(`{"id":"s-1","document_path":"/docs/s-1.docx","format":"docx"}`))
	require.NoError(t, err)
	assert.Equal(t, "/docs/s-1.docx", res.DocumentPath)
}
