// Package config loads, normalizes, and validates driftprint configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and applies DRIFTPRINT_* environment overrides. The Config type
// holds hashing defaults and state locations next to the named profiles
// (root sets plus exclusions) that the CLI fingerprints.
package config
