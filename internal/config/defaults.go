package config

import "driftprint/internal/fingerprint"

const (
	defaultStateDir         = "~/.local/share/driftprint"
	defaultLogDir           = "~/.local/share/driftprint/logs"
	defaultConfigPath       = "~/.config/driftprint/config.toml"
	defaultProjectConfig    = "driftprint.toml"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	maxChunkSize            = 64 * 1024 * 1024
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Hashing: Hashing{
			Algorithm:  fingerprint.DefaultAlgorithm,
			ChunkSize:  fingerprint.DefaultChunkSize,
			Unreadable: string(fingerprint.UnreadableAbort),
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Profiles: map[string]Profile{},
	}
}
