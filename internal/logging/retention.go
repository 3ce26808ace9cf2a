package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupOldLogs removes *.log files in dir whose modification time is older
// than retentionDays. The active log file named by keep is never removed.
// A retentionDays value of 0 disables pruning. It returns the number of
// files removed.
func CleanupOldLogs(logger *slog.Logger, dir string, retentionDays int, keep string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var keepAbs string
	if trimmed := strings.TrimSpace(keep); trimmed != "" {
		if abs, err := filepath.Abs(trimmed); err == nil {
			keepAbs = abs
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if fullPath == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				slog.String("path", fullPath),
				slog.Any("error", err),
				slog.String(FieldErrorHint, "check file permissions and log_dir ownership"),
				slog.String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", slog.String("path", fullPath), slog.String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
