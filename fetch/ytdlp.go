package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/shlex"
	"github.com/hashicorp/go-hclog"
	"github.com/lrstanley/go-ytdlp"
)

const (
	WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

	progressInterval = 250 * time.Millisecond
)

// YTDLP fetches media by shelling out to yt-dlp.
type YTDLP struct {
	bin       string
	format    string
	extraArgs []string
	timeout   time.Duration
	logger    hclog.Logger
}

func NewYTDLP(bin, format, extraArgs string, timeout time.Duration, logger hclog.Logger) (*YTDLP, error) {
	args, err := shlex.Split(extraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid yt-dlp arguments: %w", err)
	}
	return &YTDLP{
		bin:       bin,
		format:    format,
		extraArgs: args,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

func (y *YTDLP) Fetch(ctx context.Context, remoteID, dest string, report func(downloaded, total int64)) error {
	if y.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	dl := ytdlp.New().
		SetExecutable(y.bin).
		Format(y.format).
		NoPlaylist().
		ForceOverwrites().
		Output(dest).
		ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			report(int64(update.DownloadedBytes), int64(update.TotalBytes))
		})

	url := fmt.Sprintf(WatchURLTemplate, remoteID)
	args := append(append([]string{}, y.extraArgs...), url)

	y.logger.Info("running yt-dlp", "url", url, "dest", dest)
	if _, err := dl.Run(ctx, args...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("yt-dlp execution failed: %w", err)
	}
	return nil
}
