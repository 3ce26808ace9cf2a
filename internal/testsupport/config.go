package testsupport

import (
	"path/filepath"
	"testing"

	"driftprint/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProfile registers a profile on the test config.
func WithProfile(name string, roots []string, exclude ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Profiles[name] = config.Profile{Roots: roots, Exclude: exclude}
	}
}

// WithAlgorithm overrides the default hashing algorithm.
func WithAlgorithm(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hashing.Algorithm = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
