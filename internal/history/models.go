package history

import (
	"time"

	"driftprint/internal/fingerprint"
)

// Entry is one hashed file in a run manifest.
type Entry struct {
	Root  string `msgpack:"root" json:"root"`
	Rel   string `msgpack:"rel" json:"rel"`
	Path  string `msgpack:"path" json:"path"`
	Bytes int64  `msgpack:"bytes" json:"bytes"`
}

// Key identifies the entry across runs.
func (e Entry) Key() string {
	return e.Root + "\x00" + e.Rel
}

// Run is a recorded fingerprint computation.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Profile   string    `json:"profile" yaml:"profile"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Digest    string    `json:"digest" yaml:"digest"`
	Roots     []string  `json:"roots" yaml:"roots"`
	Exclude   []string  `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	FileCount int       `json:"file_count" yaml:"file_count"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Skipped   int       `json:"skipped" yaml:"skipped"`
	Manifest  []Entry   `json:"-" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewRun builds an unsaved run from a computed result.
func NewRun(profile string, exclude []string, result fingerprint.Result) Run {
	manifest := make([]Entry, 0, len(result.Files))
	for _, f := range result.Files {
		manifest = append(manifest, Entry{Root: f.Root, Rel: f.Rel, Path: f.Path, Bytes: f.Bytes})
	}
	return Run{
		Profile:   profile,
		Algorithm: result.Algorithm,
		Digest:    result.Digest,
		Roots:     append([]string(nil), result.Roots...),
		Exclude:   append([]string(nil), exclude...),
		FileCount: len(result.Files),
		Bytes:     result.Bytes,
		Skipped:   len(result.Skipped),
		Manifest:  manifest,
	}
}
