package config

import (
	"fmt"
	"strings"

	"driftprint/internal/fingerprint"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHashing()
	c.normalizeLogging()
	return c.normalizeProfiles()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeHashing() {
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	if c.Hashing.Algorithm == "" {
		c.Hashing.Algorithm = fingerprint.DefaultAlgorithm
	}
	c.Hashing.Unreadable = strings.ToLower(strings.TrimSpace(c.Hashing.Unreadable))
	if c.Hashing.Unreadable == "" {
		c.Hashing.Unreadable = string(fingerprint.UnreadableAbort)
	}
	if c.Hashing.ChunkSize == 0 {
		c.Hashing.ChunkSize = fingerprint.DefaultChunkSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeProfiles expands tildes in roots but keeps relative roots
// relative, since the fingerprint orders roots by their spelled path.
func (c *Config) normalizeProfiles() error {
	if c.Profiles == nil {
		c.Profiles = map[string]Profile{}
		return nil
	}
	normalized := make(map[string]Profile, len(c.Profiles))
	for name, profile := range c.Profiles {
		key := strings.TrimSpace(name)
		roots := make([]string, 0, len(profile.Roots))
		for _, root := range profile.Roots {
			trimmed := strings.TrimSpace(root)
			if trimmed == "" {
				continue
			}
			expanded, err := expandHome(trimmed)
			if err != nil {
				return fmt.Errorf("profiles.%s.roots: %w", key, err)
			}
			roots = append(roots, expanded)
		}
		profile.Roots = roots
		profile.Algorithm = strings.ToLower(strings.TrimSpace(profile.Algorithm))
		normalized[key] = profile
	}
	c.Profiles = normalized
	return nil
}
