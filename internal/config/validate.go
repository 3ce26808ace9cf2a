package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"driftprint/internal/fingerprint"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateProfiles()
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateHashing() error {
	if _, err := fingerprint.LookupAlgorithm(c.Hashing.Algorithm); err != nil {
		return fmt.Errorf("hashing.algorithm: %w", err)
	}
	if _, err := fingerprint.ParseUnreadablePolicy(c.Hashing.Unreadable); err != nil {
		return fmt.Errorf("hashing.unreadable: %w", err)
	}
	if c.Hashing.ChunkSize <= 0 || c.Hashing.ChunkSize > maxChunkSize {
		return fmt.Errorf("hashing.chunk_size must be between 1 and %d", maxChunkSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateProfiles() error {
	for _, name := range c.ProfileNames() {
		profile := c.Profiles[name]
		if name == "" {
			return errors.New("profiles: profile name must not be empty")
		}
		if len(profile.Roots) == 0 {
			return fmt.Errorf("profiles.%s.roots must list at least one path", name)
		}
		for _, pattern := range profile.Exclude {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return fmt.Errorf("profiles.%s.exclude: pattern %q: %w", name, pattern, err)
			}
		}
		if profile.Algorithm != "" {
			if _, err := fingerprint.LookupAlgorithm(profile.Algorithm); err != nil {
				return fmt.Errorf("profiles.%s.algorithm: %w", name, err)
			}
		}
	}
	return nil
}
