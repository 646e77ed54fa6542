// songfetch/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"songfetch/api"
	"songfetch/artifact"
	"songfetch/config"
	"songfetch/ffmpeg"
	"songfetch/fetch"
	"songfetch/job"
	"songfetch/lookup"
	"songfetch/progress"
	"songfetch/transcode"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		hclog.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "songfetch",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
	})
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger hclog.Logger) error {
	// 2. Working directory and progress registry
	paths := artifact.NewManager(cfg.WorkDir, cfg.BitrateKbps, logger.Named("artifact"))
	if err := paths.EnsureDir(); err != nil {
		return err
	}
	logger.Info("using working directory", "dir", cfg.WorkDir)
	registry := progress.NewRegistry(logger.Named("progress"))

	// 3. External tools
	runner, err := ffmpeg.NewRunner(cfg, logger.Named("ffmpeg"))
	if err != nil {
		return err
	}
	fetcher, err := fetch.NewYTDLP(cfg.YTDLPBin, cfg.FetchFormat, cfg.FetchExtraArgs, cfg.FetchTimeout, logger.Named("ytdlp"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.YouTubeAPIKey == "" {
		logger.Warn("YOUTUBE_API_KEY is not set, searches will fail")
	}
	provider, err := lookup.NewYouTube(ctx, cfg.YouTubeAPIKey, cfg.YouTubeEndpoint, cfg.SearchMaxResults, logger.Named("lookup"))
	if err != nil {
		return err
	}

	paths.StartJanitor(ctx, cfg.ArtifactLifetime)

	// 4. Pipeline
	jobs := job.NewManager(
		paths,
		registry,
		fetch.NewStage(fetcher, cfg.FetchProgressThreshold, logger.Named("fetch")),
		transcode.NewStage(runner, cfg.BitrateKbps, logger.Named("transcode")),
		transcode.NewDirectStage(runner, cfg.BitrateKbps, logger.Named("transcode")),
		logger.Named("job"),
	)

	// 5. Router and server
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(cfg, jobs, registry, paths, provider, logger.Named("api"))
	srv := api.NewServer(":"+cfg.Port, api.SetupRouter(handler, logger.Named("http")))

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			stop()
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()
	stop()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exiting")
	return nil
}
