package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
)

// NetworkError is returned when a request could not reach the backend or timed out
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("error sending request %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the request failed because it ran out of time
func (e *NetworkError) Timeout() bool {
	return errors.Is(e.Err, fasthttp.ErrTimeout) || errors.Is(e.Err, fasthttp.ErrDialTimeout)
}

// HTTPError is returned when the backend answers with a non-success status code
type HTTPError struct {
	Code    int
	Message string
	URL     string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("request %s failed with status %d: %s", e.URL, e.Code, msg)
}

// IsNotFound reports whether err is an HTTPError with status 404
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == http.StatusNotFound
}

// ErrEmptyResponse is returned when a successful response carries no body where one is expected
var ErrEmptyResponse = errors.New("empty response body")

// ErrResultNotReady is returned by GetJobResult when the backend reports the job is not completed
var ErrResultNotReady = errors.New("job result is not ready")
