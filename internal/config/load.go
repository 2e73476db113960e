package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. REVE_SERVER_PORT.
const EnvPrefix = "REVE"

// defaults lists every configuration key. Registering all keys lets viper
// resolve them from the environment during Unmarshal.
var defaults = map[string]any{
	"server.port":       8080,
	"server.log_level":  "info",
	"server.log_format": "json",

	"database.url":               "",
	"database.driver":            "pgx",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    25,
	"database.conn_max_lifetime": 5 * time.Minute,

	"auth.jwt_secret":  "",
	"auth.cron_secret": "",

	"queue.worker_count":         2,
	"queue.max_attempts":         3,
	"queue.stuck_task_timeout":   10 * time.Minute,
	"queue.schedule":             "@every 1m",
	"queue.recovery_concurrency": 4,
	"queue.redis_url":            "",
	"queue.wake_channel":         "reve:media-queue:wake",

	"generation.kie_api_key":           "",
	"generation.kie_base_url":          "https://api.kie.ai",
	"generation.image_model":           "google/nano-banana",
	"generation.storyboard_model":      "sora-2-pro-storyboard",
	"generation.veo3_model":            "veo3_fast",
	"generation.legacy_video_provider": "kie",
	"generation.gemini_api_key":        "",
	"generation.veo_model":             "veo-3.0-fast-generate-001",
	"generation.image_poll_interval":   5 * time.Second,
	"generation.image_poll_attempts":   12,
	"generation.video_poll_interval":   10 * time.Second,
	"generation.video_poll_attempts":   30,
	"generation.request_timeout":       30 * time.Second,
	"generation.default_aspect_ratio":  "9:16",

	"storage.backend":              "supabase",
	"storage.bucket":               "media",
	"storage.supabase_url":         "",
	"storage.supabase_service_key": "",
	"storage.local_root":           "",
	"storage.gcs_credentials_file": "",
	"storage.public_base_url":      "",
}

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over
// values from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching for config.yaml. An empty path searches the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags on cfg.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
