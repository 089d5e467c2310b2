// Package jobs defines the job records exchanged with the Upgrowplan research and synthesis backends.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned when a backend reports a status outside the known set
var ErrUnknownStatus = errors.New("unknown job status")

// Status represents the current state of a job as reported by the backend
type Status string

// Job status constants
const (
	// StatusPending indicates the job was accepted but has not started
	StatusPending Status = "pending"
	// StatusInProgress indicates the job is computing, see Job.CurrentStage
	StatusInProgress Status = "in_progress"
	// StatusCompleted indicates the job finished and its result can be fetched
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job failed, see Job.Error
	StatusFailed Status = "failed"
	// StatusNeedsAdjustment indicates the job stopped and waits for corrective input
	StatusNeedsAdjustment Status = "needs_adjustment"
)

// Phase groups statuses by what a poller should do with them
type Phase int

const (
	// PhaseActive means the job is still running and should be polled again
	PhaseActive Phase = iota
	// PhaseSucceeded means the job completed
	PhaseSucceeded
	// PhaseFailed means the job failed
	PhaseFailed
	// PhaseAdjustment means polling stops but the job is not final
	PhaseAdjustment
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseAdjustment:
		return "adjustment"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParseStatus converts a string to a Status type
func ParseStatus(str string) (Status, error) {
	switch str {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusInProgress):
		return StatusInProgress, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	case string(StatusNeedsAdjustment):
		return StatusNeedsAdjustment, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, str)
	}
}

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Phase classifies the status. Unknown values are reported as active.
func (s Status) Phase() Phase {
	switch s {
	case StatusCompleted:
		return PhaseSucceeded
	case StatusFailed:
		return PhaseFailed
	case StatusNeedsAdjustment:
		return PhaseAdjustment
	default:
		return PhaseActive
	}
}

// Terminal reports whether polling must stop once this status is observed
func (s Status) Terminal() bool {
	return s.Phase() != PhaseActive
}

// UnmarshalJSON rejects statuses outside the known set
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("job status must be a string: %w", err)
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
