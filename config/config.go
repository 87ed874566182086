// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries everything the composition root needs to build the event
// store, projection manager, and NATS publisher. Retry and poll parameters
// are deliberately configuration, not constants.
type Config struct {
	DatabaseDSN string `env:"APP_DSN,required"`
	NATSURL     string `env:"APP_NATS_URL"`
	NATSStream  string `env:"APP_NATS_STREAM" envDefault:"campaigns"`

	ProjectionPollInterval   time.Duration `env:"APP_PROJECTION_POLL_INTERVAL" envDefault:"500ms"`
	ProjectionBatchSize      int           `env:"APP_PROJECTION_BATCH_SIZE" envDefault:"100"`
	ProjectionMaxRetries     uint          `env:"APP_PROJECTION_MAX_RETRIES" envDefault:"5"`
	ProjectionMaxElapsedTime time.Duration `env:"APP_PROJECTION_MAX_ELAPSED_TIME" envDefault:"1m"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
