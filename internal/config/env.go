package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the DRIFTPRINT_* variables that take precedence over
// the configuration file.
type envOverrides struct {
	StateDir   string `env:"DRIFTPRINT_STATE_DIR"`
	LogDir     string `env:"DRIFTPRINT_LOG_DIR"`
	Algorithm  string `env:"DRIFTPRINT_ALGORITHM"`
	ChunkSize  int    `env:"DRIFTPRINT_CHUNK_SIZE"`
	Unreadable string `env:"DRIFTPRINT_UNREADABLE"`
	LogFormat  string `env:"DRIFTPRINT_LOG_FORMAT"`
	LogLevel   string `env:"DRIFTPRINT_LOG_LEVEL"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	setIfPresent(&c.Paths.StateDir, overrides.StateDir)
	setIfPresent(&c.Paths.LogDir, overrides.LogDir)
	setIfPresent(&c.Hashing.Algorithm, overrides.Algorithm)
	setIfPresent(&c.Hashing.Unreadable, overrides.Unreadable)
	setIfPresent(&c.Logging.Format, overrides.LogFormat)
	setIfPresent(&c.Logging.Level, overrides.LogLevel)
	if overrides.ChunkSize != 0 {
		c.Hashing.ChunkSize = overrides.ChunkSize
	}
	return nil
}

func setIfPresent(target *string, value string) {
	if value != "" {
		*target = value
	}
}
