// Package handlers serves the sandbox job service over HTTP
package handlers

// Error slugs carried in the "error" field of error responses
const (
	SlugInvalidInput = "invalid_input"
	SlugNotFound     = "not_found"
	SlugConflict     = "conflict"
	SlugUnavailable  = "unavailable"
	SlugServerError  = "server_error"
)

// Common error messages
const (
	ErrMsgInvalidReqBody  = "Invalid request body"
	ErrMsgUnknownKind     = "Unknown job collection"
	ErrMsgJobNotFound     = "Job not found"
	ErrMsgResultNotReady  = "Job result is not ready"
	ErrMsgUnknownResult   = "Unknown result path"
	ErrMsgUnavailable     = "Backend temporarily unavailable"
	ErrMsgJobIDRequired   = "Job id is required"
	ErrMsgInvalidScenario = "Invalid scenario parameters"
)
