package job

import (
	"errors"
	"fmt"
	"time"
)

type State string

const (
	StateCreated     State = "created"
	StateFetching    State = "fetching"
	StateTranscoding State = "transcoding"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// IsFinished reports whether s is terminal.
func (s State) IsFinished() bool {
	return s == StateComplete || s == StateFailed
}

var (
	// ErrJobExists is returned when a job id is reused while its job is still running.
	ErrJobExists = errors.New("job already in progress")

	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Job is a point-in-time view of one pipeline run.
type Job struct {
	ID          string     `json:"id"`
	RemoteID    string     `json:"remoteId,omitempty"`
	State       State      `json:"state"`
	Percent     float64    `json:"percent"`
	InputPath   string     `json:"-"`
	OutputPath  string     `json:"-"`
	Artifact    string     `json:"artifact,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (j *Job) transition(to State) error {
	if !isValidTransition(j.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, to)
	}
	j.State = to
	if to.IsFinished() {
		now := time.Now()
		j.CompletedAt = &now
	}
	return nil
}

// isValidTransition enforces the pipeline state machine. Uploaded files skip
// the fetching state.
func isValidTransition(from, to State) bool {
	switch from {
	case StateCreated:
		return to == StateFetching || to == StateTranscoding || to == StateFailed
	case StateFetching:
		return to == StateTranscoding || to == StateFailed
	case StateTranscoding:
		return to == StateComplete || to == StateFailed
	default:
		return false
	}
}
