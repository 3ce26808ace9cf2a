// Package apperrors defines application errors and exit code mapping.
package apperrors

import (
	"errors"

	"driftprint/internal/fingerprint"
)

var (
	// ErrUsage indicates a command usage failure.
	ErrUsage = errors.New("usage error")
	// ErrDrift indicates that a check found the tree differs from its baseline.
	ErrDrift = errors.New("drift detected")
)

// Exit codes returned by the driftprint binary.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
	ExitDrift = 3
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrDrift):
		return ExitDrift
	case errors.Is(err, ErrUsage), errors.Is(err, fingerprint.ErrInvalidInput):
		return ExitUsage
	default:
		return ExitError
	}
}
