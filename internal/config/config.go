// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Document store drivers.
const (
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverRedis     = "redis"
	DriverMemory    = "memory"
)

// Upload backends.
const (
	UploadDisk = "disk"
	UploadGCS  = "gcs"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// LogLevel controls the minimum log level.
	// Valid values: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to the Vite dev server.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// StoreDriver selects where trip documents live.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// DatabaseURL is the Postgres connection string. Required for the postgres driver.
	DatabaseURL string `env:"DATABASE_URL"`

	// FirestoreProject is the GCP project id. Required for the firestore driver.
	FirestoreProject string `env:"FIRESTORE_PROJECT"`

	// Redis backs the redis driver and the token denylist. An empty
	// RedisAddr keeps revoked tokens in memory instead.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"tabinico"`

	// JWTSecret signs session tokens. Required.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	// DemoTripID is the document shared by every anonymous visitor.
	DemoTripID string `env:"DEMO_TRIP_ID" envDefault:"demo-trip"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`

	UploadDriver   string        `env:"UPLOAD_DRIVER" envDefault:"disk"`
	UploadDir      string        `env:"UPLOAD_DIR" envDefault:"./data/files"`
	UploadBaseURL  string        `env:"UPLOAD_BASE_URL" envDefault:"http://localhost:8080/files"`
	GCSBucket      string        `env:"GCS_BUCKET"`
	UploadMaxBytes int64         `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`

	// AMQPURL enables publishing domain events to RabbitMQ. Events are
	// only logged when it is empty.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"tabinico.events"`
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over the file.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverFirestore:
		if cfg.FirestoreProject == "" {
			missing = append(missing, "FIRESTORE_PROJECT")
		}
	case DriverRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("config.Load: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.UploadDriver {
	case UploadDisk:
	case UploadGCS:
		if cfg.GCSBucket == "" {
			missing = append(missing, "GCS_BUCKET")
		}
	default:
		return Config{}, fmt.Errorf("config.Load: unknown UPLOAD_DRIVER %q", cfg.UploadDriver)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
