// Package transcode converts fetched media to the target audio format and
// maps the transcoder's progress onto a sub-range of the job's percent range.
package transcode

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

const DefaultBitrateKbps = 320

// Transcoder converts src into dest at the given bitrate. report receives the
// transcoder's own completion percent in [0, 100].
type Transcoder interface {
	Transcode(ctx context.Context, src, dest string, bitrateKbps int, report func(percent float64)) error
}

// Error wraps any failure of the underlying transcoder.
type Error struct {
	Src string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode %s failed: %v", e.Src, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stage scales native percents linearly into [Low, High].
type Stage struct {
	transcoder Transcoder
	bitrate    int
	Low, High  float64
	logger     hclog.Logger
}

// NewStage returns the stage used after a fetch: it owns the upper half of
// the job's progress.
func NewStage(t Transcoder, bitrateKbps int, logger hclog.Logger) *Stage {
	return newStage(t, bitrateKbps, 50, 100, logger)
}

// NewDirectStage returns a stage that owns the whole progress range, for jobs
// that start from an uploaded file.
func NewDirectStage(t Transcoder, bitrateKbps int, logger hclog.Logger) *Stage {
	return newStage(t, bitrateKbps, 0, 100, logger)
}

func newStage(t Transcoder, bitrateKbps int, low, high float64, logger hclog.Logger) *Stage {
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return &Stage{transcoder: t, bitrate: bitrateKbps, Low: low, High: high, logger: logger}
}

func (s *Stage) Bitrate() int {
	return s.bitrate
}

// Scale maps a native percent onto the stage's range.
func (s *Stage) Scale(native float64) float64 {
	if native < 0 {
		native = 0
	}
	if native > 100 {
		native = 100
	}
	return s.Low + native*(s.High-s.Low)/100
}

// Run transcodes src into dest and pushes every scaled update to updates.
// Run does not close updates. src is left in place.
func (s *Stage) Run(ctx context.Context, src, dest string, updates chan<- float64) error {
	s.logger.Debug("transcode started", "src", src, "dest", dest, "kbps", s.bitrate)
	err := s.transcoder.Transcode(ctx, src, dest, s.bitrate, func(native float64) {
		updates <- s.Scale(native)
	})
	if err != nil {
		return &Error{Src: src, Err: err}
	}
	s.logger.Debug("transcode finished", "dest", dest)
	return nil
}
