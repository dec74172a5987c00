package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"gwi.com/finance-chat/internal/store"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	Storage     string `envconfig:"STORAGE" default:"sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"finance_chat.db"`
	BoltPath    string `envconfig:"BOLT_PATH" default:"finance_chat.bolt"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"finance-chat"`
	S3Prefix    string `envconfig:"S3_PREFIX"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Delay between selecting a suggested question and sending it.
	SuggestionDelay time.Duration `envconfig:"SUGGESTION_DELAY" default:"50ms"`
}

// Load reads a .env file if present and then the FINCHAT_* environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FINCHAT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// RequireJWTSecret fails when no signing secret is configured.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("FINCHAT_JWT_SECRET environment variable is required")
	}
	return nil
}

func (c *Config) StoreOptions() store.OpenOptions {
	return store.OpenOptions{
		Backend:     c.Storage,
		DatabaseURL: c.DatabaseURL,
		BoltPath:    c.BoltPath,
		S3: store.S3Config{
			Endpoint:        c.S3Endpoint,
			Region:          c.S3Region,
			AccessKeyID:     c.S3AccessKey,
			SecretAccessKey: c.S3SecretKey,
			Bucket:          c.S3Bucket,
			Prefix:          c.S3Prefix,
			UsePathStyle:    c.S3Endpoint != "",
		},
	}
}
