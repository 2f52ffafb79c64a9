package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	LocalDB LocalDBConfig
	Cloud   CloudConfig
	Sync    SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"nabil-inventory"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"2.0.0"`
}

// LocalDBConfig holds the on-device SQLite store settings.
type LocalDBConfig struct {
	Path string `envconfig:"LOCAL_DB_PATH" default:"./data/inventory.db"`
}

// CloudConfig holds cloud adapter settings.
type CloudConfig struct {
	// Type selects the cloud backend: simulated, s3, or redis.
	Type string `envconfig:"CLOUD_TYPE" default:"simulated"`

	// Simulated (zero-infrastructure) settings.
	SimulatedDir string `envconfig:"CLOUD_SIMULATED_DIR" default:"./data/cloud"`

	// S3 file-blob settings.
	S3Bucket    string `envconfig:"CLOUD_S3_BUCKET" default:""`
	S3Region    string `envconfig:"CLOUD_S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"CLOUD_S3_PREFIX" default:"appdata"`
	S3Endpoint  string `envconfig:"CLOUD_S3_ENDPOINT" default:""` // optional S3-compatible endpoint
	S3AccessKey string `envconfig:"CLOUD_S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"CLOUD_S3_SECRET_KEY" default:""`

	// Redis multi-collection settings.
	RedisHost     string `envconfig:"CLOUD_REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"CLOUD_REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"CLOUD_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"CLOUD_REDIS_DB" default:"0"`
}

// SyncConfig holds sync coordinator timing settings.
type SyncConfig struct {
	// Debounce is the quiet period after the last local change before a
	// background push fires. Edits inside the window collapse into one push.
	Debounce time.Duration `envconfig:"SYNC_DEBOUNCE" default:"10s"`

	// PushTimeout bounds a single push or pull against the cloud backend.
	PushTimeout time.Duration `envconfig:"SYNC_PUSH_TIMEOUT" default:"30s"`

	// CleanupTimeout bounds the best-effort local wipe on logout. The logout
	// transition proceeds past this deadline so leaving the account is never
	// blocked by a stuck store.
	CleanupTimeout time.Duration `envconfig:"SYNC_CLEANUP_TIMEOUT" default:"2s"`
}

// RedisAddress returns the Redis address in host:port format.
func (c *CloudConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
