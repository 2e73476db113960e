package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Queue      QueueConfig      `mapstructure:"queue" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
	// Driver is "pgx" for PostgreSQL or "sqlite" for a local file database.
	Driver          string        `mapstructure:"driver" validate:"required,oneof=pgx sqlite"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	// JWTSecret verifies access tokens issued by the backend-as-a-service.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// CronSecret is the bearer token required by the queue trigger endpoints.
	CronSecret string `mapstructure:"cron_secret" validate:"required,min=16"`
}

// QueueConfig controls the media-generation worker pool.
type QueueConfig struct {
	WorkerCount         int           `mapstructure:"worker_count" validate:"gt=0"`
	MaxAttempts         int           `mapstructure:"max_attempts" validate:"gt=0"`
	StuckTaskTimeout    time.Duration `mapstructure:"stuck_task_timeout" validate:"gt=0"`
	Schedule            string        `mapstructure:"schedule" validate:"required"`
	RecoveryConcurrency int           `mapstructure:"recovery_concurrency" validate:"gt=0"`
	// RedisURL enables cross-instance wake-ups when set.
	RedisURL    string `mapstructure:"redis_url" validate:"omitempty,url"`
	WakeChannel string `mapstructure:"wake_channel" validate:"required"`
}

// GenerationConfig holds provider credentials, models and polling bounds.
type GenerationConfig struct {
	KieAPIKey       string `mapstructure:"kie_api_key" validate:"required"`
	KieBaseURL      string `mapstructure:"kie_base_url" validate:"required,url"`
	ImageModel      string `mapstructure:"image_model" validate:"required"`
	StoryboardModel string `mapstructure:"storyboard_model" validate:"required"`
	Veo3Model       string `mapstructure:"veo3_model" validate:"required"`

	// LegacyVideoProvider selects who renders single-prompt videos.
	LegacyVideoProvider string `mapstructure:"legacy_video_provider" validate:"required,oneof=kie gemini"`
	GeminiAPIKey        string `mapstructure:"gemini_api_key" validate:"required_if=LegacyVideoProvider gemini"`
	VeoModel            string `mapstructure:"veo_model" validate:"required_if=LegacyVideoProvider gemini"`

	ImagePollInterval  time.Duration `mapstructure:"image_poll_interval" validate:"gt=0"`
	ImagePollAttempts  int           `mapstructure:"image_poll_attempts" validate:"gt=0"`
	VideoPollInterval  time.Duration `mapstructure:"video_poll_interval" validate:"gt=0"`
	VideoPollAttempts  int           `mapstructure:"video_poll_attempts" validate:"gt=0"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	DefaultAspectRatio string        `mapstructure:"default_aspect_ratio" validate:"required"`
}

// StorageConfig selects and configures the media storage backend.
type StorageConfig struct {
	Backend            string `mapstructure:"backend" validate:"required,oneof=supabase gcs local"`
	Bucket             string `mapstructure:"bucket" validate:"required_unless=Backend local"`
	SupabaseURL        string `mapstructure:"supabase_url" validate:"required_if=Backend supabase"`
	SupabaseServiceKey string `mapstructure:"supabase_service_key" validate:"required_if=Backend supabase"`
	LocalRoot          string `mapstructure:"local_root" validate:"required_if=Backend local"`
	// GCSCredentialsFile is optional; application default credentials are used otherwise.
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
	// PublicBaseURL overrides the URL prefix returned for stored objects.
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
}
