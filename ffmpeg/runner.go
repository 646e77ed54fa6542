package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"songfetch/config"
)

const (
	AudioCodec         = "libmp3lame"
	ProgressPipeTarget = "pipe:1"
	ProgressTimePrefix = "out_time_us="
	ProgressEndLine    = "progress=end"

	stderrTailLines = 5
)

// Runner drives ffmpeg and ffprobe binaries.
type Runner struct {
	cfg       *config.Config
	extraArgs []string
	logger    hclog.Logger
}

func NewRunner(cfg *config.Config, logger hclog.Logger) (*Runner, error) {
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		return nil, fmt.Errorf("ffmpeg binary not found or not in PATH: %s", cfg.FFBin)
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		logger.Warn("ffprobe not found, transcode progress will not be reported", "bin", cfg.FFProbeBin)
	}

	extra, err := SplitCommand(cfg.FFExtraArgs)
	if err != nil {
		return nil, err
	}
	if err := ValidateExtraArgs(extra); err != nil {
		return nil, fmt.Errorf("invalid FF_EXTRA_ARGS: %w", err)
	}

	return &Runner{cfg: cfg, extraArgs: extra, logger: logger}, nil
}

// Transcode converts src to an MP3 at dest. report receives percent complete
// while ffmpeg runs; nothing is reported when the input duration is unknown.
func (r *Runner) Transcode(ctx context.Context, src, dest string, bitrateKbps int, report func(percent float64)) error {
	if r.cfg.FFTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.FFTimeout)
		defer cancel()
	}

	duration, err := r.probeDuration(ctx, src)
	if err != nil {
		r.logger.Warn("could not probe duration", "src", src, "error", err)
	}

	args := BuildArgs(src, dest, bitrateKbps, r.extraArgs)
	cmd := exec.CommandContext(ctx, r.cfg.FFBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	r.logger.Info("executing ffmpeg", "cmd", r.cfg.FFBin+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// The pipe must be drained before Wait closes it.
	ParseProgress(stdout, duration, report)

	if err := cmd.Wait(); err != nil {
		os.Remove(dest)
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, tail(stderr.String(), stderrTailLines))
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments for an audio-only conversion.
func BuildArgs(src, dest string, bitrateKbps int, extra []string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", src,
		"-vn",
		"-c:a", AudioCodec,
		"-b:a", fmt.Sprintf("%dk", bitrateKbps),
	}
	args = append(args, extra...)
	return append(args,
		"-progress", ProgressPipeTarget,
		"-nostats",
		dest,
	)
}

// probeDuration returns the media duration in seconds.
func (r *Runner) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, r.cfg.FFProbeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return d, nil
}

// ParseProgress reads ffmpeg "-progress" key=value output and reports percent
// complete relative to totalSeconds until r is exhausted.
func ParseProgress(r io.Reader, totalSeconds float64, report func(percent float64)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == ProgressEndLine:
			if totalSeconds > 0 {
				report(100)
			}
		case strings.HasPrefix(line, ProgressTimePrefix):
			if totalSeconds <= 0 {
				continue
			}
			us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
			if err != nil || us < 0 {
				continue
			}
			p := float64(us) / 1e6 / totalSeconds * 100
			if p > 100 {
				p = 100
			}
			report(p)
		}
	}
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
