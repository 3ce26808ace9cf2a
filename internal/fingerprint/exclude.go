package fingerprint

import (
	"fmt"
	"path"
	"path/filepath"
)

// excluder holds validated shell-glob exclusion patterns.
type excluder struct {
	patterns []string
}

func newExcluder(patterns []string) (excluder, error) {
	cleaned := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return excluder{}, fmt.Errorf("%w: exclude pattern %q: %w", ErrInvalidInput, pattern, err)
		}
		cleaned = append(cleaned, pattern)
	}
	return excluder{patterns: cleaned}, nil
}

// match reports the first pattern matching any of the candidate spellings of
// one path unit. Every pattern is tried before giving up.
func (e excluder) match(osPath, slashPath, name string) (string, bool) {
	for _, pattern := range e.patterns {
		if ok, _ := filepath.Match(pattern, osPath); ok {
			return pattern, true
		}
		if slashPath != "" {
			if ok, _ := path.Match(pattern, slashPath); ok {
				return pattern, true
			}
		}
		if name != "" {
			if ok, _ := filepath.Match(pattern, name); ok {
				return pattern, true
			}
		}
	}
	return "", false
}

