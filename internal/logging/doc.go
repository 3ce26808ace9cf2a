// Package logging assembles the structured slog loggers used by driftprint.
//
// Console output (pretty key=value or JSON) goes to stderr so stdout stays
// reserved for digests; when a log directory is configured every record is
// also appended to a JSON log file. Context helpers tag lines with the run
// identifier and profile of the current fingerprint run, and CleanupOldLogs
// prunes stale log files by age.
package logging
