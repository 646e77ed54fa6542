// songfetch/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	WorkDir string `mapstructure:"WORK_DIR"`

	FFBin       string        `mapstructure:"FF_BIN"`
	FFProbeBin  string        `mapstructure:"FFPROBE_BIN"`
	FFTimeout   time.Duration `mapstructure:"FF_TIMEOUT"`
	FFExtraArgs string        `mapstructure:"FF_EXTRA_ARGS"`
	BitrateKbps int           `mapstructure:"BITRATE_KBPS"`

	YTDLPBin               string        `mapstructure:"YTDLP_BIN"`
	FetchFormat            string        `mapstructure:"FETCH_FORMAT"`
	FetchExtraArgs         string        `mapstructure:"FETCH_EXTRA_ARGS"`
	FetchTimeout           time.Duration `mapstructure:"FETCH_TIMEOUT"`
	FetchProgressThreshold float64       `mapstructure:"FETCH_PROGRESS_THRESHOLD"`

	YouTubeAPIKey    string   `mapstructure:"YOUTUBE_API_KEY"`
	YouTubeEndpoint  string   `mapstructure:"YOUTUBE_ENDPOINT"`
	SearchMaxResults int64    `mapstructure:"SEARCH_MAX_RESULTS"`
	ExcludedTerms    []string `mapstructure:"EXCLUDED_TERMS"`

	MaxUploadSize    int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	ArtifactLifetime time.Duration `mapstructure:"ARTIFACT_LIFETIME"`
	SSEHeartbeat     time.Duration `mapstructure:"SSE_HEARTBEAT"`
	ThrottleFreeMem  int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64         `mapstructure:"THROTTLE_FREEDISK"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogJSON  bool   `mapstructure:"LOG_JSON"`
}

// stringToDurationHookFunc parses Go duration strings such as "12m3s".
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc parses human-readable size strings such as "200MB".
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(data.(string))); err != nil {
			// Not a size string, let other parsers handle it.
			return data, nil
		}
		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	vp.SetDefault("PORT", "3000")
	vp.SetDefault("WORK_DIR", "uploads")
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_TIMEOUT", "12m3s")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("BITRATE_KBPS", 320)
	vp.SetDefault("YTDLP_BIN", "yt-dlp")
	vp.SetDefault("FETCH_FORMAT", "bestaudio/best")
	vp.SetDefault("FETCH_EXTRA_ARGS", "")
	vp.SetDefault("FETCH_TIMEOUT", "10m")
	vp.SetDefault("FETCH_PROGRESS_THRESHOLD", 1.0)
	vp.SetDefault("YOUTUBE_API_KEY", "")
	vp.SetDefault("YOUTUBE_ENDPOINT", "")
	vp.SetDefault("SEARCH_MAX_RESULTS", 10)
	vp.SetDefault("EXCLUDED_TERMS", "official,show,stage")
	vp.SetDefault("MAX_UPLOAD_SIZE", "200MB")
	vp.SetDefault("ARTIFACT_LIFETIME", "1h23m")
	vp.SetDefault("SSE_HEARTBEAT", "15s")
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("LOG_JSON", false)

	vp.SetConfigName("songfetch_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/songfetch/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("SONGFETCH")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// The first hook that converts the value wins.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}
	cfg.ExcludedTerms = normalizeTerms(cfg.ExcludedTerms)

	return &cfg, nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
