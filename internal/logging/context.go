package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldRunID is the structured logging key for fingerprint run identifiers.
	FieldRunID = "run_id"
	// FieldProfile is the structured logging key for configured profile names.
	FieldProfile = "profile"
)

type contextKey int

const (
	runIDKey contextKey = iota
	profileKey
)

// WithRunID attaches a run identifier to ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithProfile attaches a profile name to ctx.
func WithProfile(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, profileKey, name)
}

// RunIDFromContext returns the run identifier stored in ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if name, ok := ctx.Value(profileKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldProfile, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
