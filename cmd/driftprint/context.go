package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"driftprint/internal/config"
	"driftprint/internal/fingerprint"
	"driftprint/internal/history"
	"driftprint/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// logger builds a logger that writes console output to stderr. When verbose
// is set the level is lowered to info so "Hashing" lines are always shown.
func (c *commandContext) logger(stderr io.Writer, verbose bool) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if verbose && (level == "warn" || level == "error") {
		level = "info"
	}
	logger, err := logging.New(logging.Options{
		Level:    level,
		Format:   cfg.Logging.Format,
		Console:  stderr,
		FilePath: cfg.LogPath(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, cfg.LogPath())
	return logger, nil
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// hashOptions captures per-invocation overrides of the configured hashing defaults.
type hashOptions struct {
	algorithm  string
	unreadable string
	exclude    []string
	verbose    bool
}

func (c *commandContext) compute(ctx context.Context, logger *slog.Logger, roots []string, profileAlgorithm string, opts hashOptions) (fingerprint.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fingerprint.Result{}, err
	}

	algorithm := firstNonEmpty(opts.algorithm, profileAlgorithm, cfg.Hashing.Algorithm)
	policy, err := fingerprint.ParseUnreadablePolicy(firstNonEmpty(opts.unreadable, cfg.Hashing.Unreadable))
	if err != nil {
		return fingerprint.Result{}, err
	}

	return fingerprint.Compute(ctx, fingerprint.Options{
		Roots:      roots,
		Exclude:    opts.exclude,
		Verbose:    opts.verbose,
		Algorithm:  algorithm,
		Unreadable: policy,
		ChunkSize:  cfg.Hashing.ChunkSize,
		Logger:     logging.NewComponentLogger(logger, "fingerprint"),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
