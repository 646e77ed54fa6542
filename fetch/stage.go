// Package fetch downloads the source media of a job and reports its progress
// on the first half of the job's percent range.
package fetch

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// MaxPercent is the share of a job's progress owned by the fetch stage.
const MaxPercent = 50.0

// Fetcher retrieves the media identified by remoteID into dest. report is
// called with byte counts whenever the fetcher learns about progress; total is
// zero or negative when the size is unknown.
type Fetcher interface {
	Fetch(ctx context.Context, remoteID, dest string, report func(downloaded, total int64)) error
}

// Error wraps any failure of the underlying fetcher.
type Error struct {
	RemoteID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.RemoteID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Stage struct {
	fetcher   Fetcher
	threshold float64
	logger    hclog.Logger
}

// NewStage returns a stage that only emits an update once the scaled percent
// moved by more than threshold points.
func NewStage(fetcher Fetcher, threshold float64, logger hclog.Logger) *Stage {
	if threshold < 0 {
		threshold = 0
	}
	return &Stage{fetcher: fetcher, threshold: threshold, logger: logger}
}

// Run fetches remoteID into dest and pushes scaled percents in [0, 50] to
// updates. Run does not close updates.
func (s *Stage) Run(ctx context.Context, remoteID, dest string, updates chan<- float64) error {
	last := -1.0
	report := func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		scaled := float64(downloaded) / float64(total) * MaxPercent
		if scaled < 0 {
			scaled = 0
		}
		if scaled > MaxPercent {
			scaled = MaxPercent
		}

		first := last < 0
		moved := scaled-last > s.threshold
		finished := scaled == MaxPercent && scaled > last
		if !first && !moved && !finished {
			return
		}
		last = scaled
		updates <- scaled
	}

	s.logger.Debug("fetch started", "remote_id", remoteID, "dest", dest)
	if err := s.fetcher.Fetch(ctx, remoteID, dest, report); err != nil {
		return &Error{RemoteID: remoteID, Err: err}
	}
	s.logger.Debug("fetch finished", "remote_id", remoteID)
	return nil
}
