package client

import (
	"encoding/json"
	"fmt"
)

// ErrorResponse represents the standard error response from the job service
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// DecodeResult decodes a raw result payload into its job-type specific struct
func DecodeResult[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("empty result payload")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("error decoding result: %w", err)
	}
	return v, nil
}
