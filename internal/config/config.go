// Package config assembles the service configuration from the environment.
// The resulting struct is passed explicitly to constructors; nothing in the
// service reads configuration from ambient process state after startup.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/corpola/bulkmail/pkg/integration/blobstore"
	"github.com/corpola/bulkmail/pkg/integration/brevo"
	"github.com/corpola/bulkmail/pkg/logging"
)

// Config holds the full service configuration.
type Config struct {
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string

	// Database configuration.
	DBDriver string // "postgres" or "sqlite"
	DBDSN    string

	// Redis backs the job queue.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StagingDir is the root directory for staged attachment files.
	StagingDir string

	// Queue settings.
	QueueConcurrency int
	QueueMaxRetry    int

	Brevo     brevo.Config
	BlobStore blobstore.Config
	Logging   logging.Config
}

// Default returns a configuration with local-development defaults.
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		DBDriver:         "sqlite",
		DBDSN:            "file:bulkmail.db?_pragma=busy_timeout(5000)",
		RedisAddr:        "localhost:6379",
		StagingDir:       os.TempDir() + "/bulkmail-staging",
		QueueConcurrency: 10,
		QueueMaxRetry:    5,
		Brevo: brevo.Config{
			DefaultSender: brevo.EmailAddress{
				Name:  "Corpola Mailings",
				Email: "no-reply@corpola.com",
			},
			TimeoutSeconds: 30,
		},
		BlobStore: blobstore.DefaultConfig(),
		Logging:   logging.DefaultConfig(),
	}
}

// FromEnv builds the configuration from environment variables on top of the
// defaults.
func FromEnv() (Config, error) {
	cfg := Default()

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.DBDriver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		cfg.DBDSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.RedisPassword = pw
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if dir := os.Getenv("STAGING_DIR"); dir != "" {
		cfg.StagingDir = dir
	}
	if c := os.Getenv("QUEUE_CONCURRENCY"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid QUEUE_CONCURRENCY: %w", err)
		}
		cfg.QueueConcurrency = n
	}
	if m := os.Getenv("QUEUE_MAX_RETRY"); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return cfg, fmt.Errorf("config: invalid QUEUE_MAX_RETRY: %w", err)
		}
		cfg.QueueMaxRetry = n
	}

	if key := os.Getenv("BREVO_API_KEY"); key != "" {
		cfg.Brevo.APIKey = key
	}
	if name := os.Getenv("EMAIL_SENDER_NAME"); name != "" {
		cfg.Brevo.DefaultSender.Name = name
	}
	if email := os.Getenv("EMAIL_SENDER_ADDRESS"); email != "" {
		cfg.Brevo.DefaultSender.Email = email
	}

	cfg.Logging = logging.ConfigFromEnv()

	return cfg, nil
}

// Validate checks that settings required at runtime are present.
func (c Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: DB_DSN is required")
	}
	if c.StagingDir == "" {
		return fmt.Errorf("config: STAGING_DIR is required")
	}
	if c.QueueConcurrency <= 0 {
		return fmt.Errorf("config: QUEUE_CONCURRENCY must be positive")
	}
	return nil
}
