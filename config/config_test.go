// songfetch/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"songfetch/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		t.Setenv("SONGFETCH_PORT", "")
		t.Setenv("SONGFETCH_BITRATE_KBPS", "")
		t.Setenv("SONGFETCH_FF_TIMEOUT", "")
		t.Setenv("SONGFETCH_MAX_UPLOAD_SIZE", "")
		t.Setenv("SONGFETCH_EXCLUDED_TERMS", "")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "3000", cfg.Port)
		assert.Equal(t, "uploads", cfg.WorkDir)
		assert.Equal(t, 320, cfg.BitrateKbps)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "yt-dlp", cfg.YTDLPBin)
		assert.Equal(t, 12*time.Minute+3*time.Second, cfg.FFTimeout)
		assert.Equal(t, 15*time.Second, cfg.SSEHeartbeat)
		assert.Equal(t, time.Hour+23*time.Minute, cfg.ArtifactLifetime)
		assert.Equal(t, int64(200*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, 1.0, cfg.FetchProgressThreshold)
		assert.Equal(t, int64(10), cfg.SearchMaxResults)
		assert.Equal(t, []string{"official", "show", "stage"}, cfg.ExcludedTerms)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("SONGFETCH_PORT", "9999")
		t.Setenv("SONGFETCH_BITRATE_KBPS", "192")
		t.Setenv("SONGFETCH_FF_TIMEOUT", "30s")
		t.Setenv("SONGFETCH_MAX_UPLOAD_SIZE", "50MB")
		t.Setenv("SONGFETCH_EXCLUDED_TERMS", "live, karaoke")
		t.Setenv("SONGFETCH_YOUTUBE_API_KEY", "secret")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 192, cfg.BitrateKbps)
		assert.Equal(t, 30*time.Second, cfg.FFTimeout)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, []string{"live", "karaoke"}, cfg.ExcludedTerms)
		assert.Equal(t, "secret", cfg.YouTubeAPIKey)
	})
}
