package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JobID is the opaque identifier the backend assigns at submission.
// Backends send it either as a JSON string or as a JSON number.
type JobID string

func (id JobID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both string and numeric identifiers
func (id *JobID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
		*id = JobID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid job id %s: %w", string(data), err)
	}
	*id = JobID(n.String())
	return nil
}

// Job is a snapshot of a job's state as returned by the status endpoint
type Job struct {
	ID           JobID   `json:"id"`                      // Backend-assigned identifier
	Status       Status  `json:"status"`                  // Current status
	Progress     float64 `json:"progress"`                // Percentage, 0-100
	CurrentStage string  `json:"current_stage,omitempty"` // Free-text label for in_progress
	Error        string  `json:"error,omitempty"`         // Populated for failed and needs_adjustment

	// Fields holds the job-type specific fields the backend sent alongside the common ones
	Fields map[string]json.RawMessage `json:"-"`
}

// knownJobFields are the JSON keys decoded into Job's typed fields
var knownJobFields = []string{"id", "status", "progress", "current_stage", "error"}

type jobAlias Job

// UnmarshalJSON decodes the common fields and keeps every other key in Fields
func (j *Job) UnmarshalJSON(data []byte) error {
	var alias jobAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	if alias.Status == "" {
		return fmt.Errorf("%w: status is missing", ErrUnknownStatus)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownJobFields {
		delete(raw, key)
	}
	if len(raw) > 0 {
		alias.Fields = raw
	} else {
		alias.Fields = nil
	}

	*j = Job(alias)
	return nil
}

// MarshalJSON writes the domain fields back next to the common ones
func (j Job) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(j.Fields)+len(knownJobFields))
	for k, v := range j.Fields {
		out[k] = v
	}
	out["id"] = j.ID
	out["status"] = j.Status
	out["progress"] = j.Progress
	if j.CurrentStage != "" {
		out["current_stage"] = j.CurrentStage
	}
	if j.Error != "" {
		out["error"] = j.Error
	}
	return json.Marshal(out)
}

// Field decodes the domain field with the given key into v.
// It returns false when the key is absent.
func (j Job) Field(key string, v interface{}) (bool, error) {
	raw, ok := j.Fields[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("error decoding field %q: %w", key, err)
	}
	return true, nil
}

// Summary renders a one line description suitable for progress output
func (j Job) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.0f%%", j.Status, j.Progress)
	if j.CurrentStage != "" {
		fmt.Fprintf(&b, " (%s)", j.CurrentStage)
	}
	if j.Error != "" {
		fmt.Fprintf(&b, ": %s", j.Error)
	}
	return b.String()
}

// SubmitRequest is the body of a job submission
type SubmitRequest struct {
	Params map[string]interface{} `json:"params,omitempty"`
}
