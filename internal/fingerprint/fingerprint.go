package fingerprint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var (
	// ErrInvalidInput reports malformed roots, patterns or options. It is
	// returned before any filesystem access.
	ErrInvalidInput = errors.New("invalid fingerprint input")
	// ErrRootNotFound reports a non-excluded root that does not exist.
	ErrRootNotFound = errors.New("root path not found")
	// ErrFileUnreadable reports a file or directory that could not be read.
	ErrFileUnreadable = errors.New("file unreadable")
)

// DefaultChunkSize is the read buffer used when Options.ChunkSize is unset.
const DefaultChunkSize = 32 * 1024

// UnreadablePolicy selects how unreadable files are handled.
type UnreadablePolicy string

const (
	// UnreadableAbort fails the whole computation with ErrFileUnreadable.
	UnreadableAbort UnreadablePolicy = "abort"
	// UnreadableSkip omits files that cannot be opened and records them in
	// Result.Skipped.
	UnreadableSkip UnreadablePolicy = "skip"
)

// ParseUnreadablePolicy resolves a policy name. Empty selects UnreadableAbort.
func ParseUnreadablePolicy(value string) (UnreadablePolicy, error) {
	switch UnreadablePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", UnreadableAbort:
		return UnreadableAbort, nil
	case UnreadableSkip:
		return UnreadableSkip, nil
	default:
		return "", fmt.Errorf("%w: unknown unreadable policy %q (want abort or skip)", ErrInvalidInput, value)
	}
}

// Options configures a fingerprint computation.
type Options struct {
	Roots   []string
	Exclude []string
	// Verbose logs "Hashing <path>" at info level before each file is read.
	Verbose    bool
	Algorithm  string
	Unreadable UnreadablePolicy
	ChunkSize  int
	// FS defaults to the host filesystem.
	FS     afero.Fs
	Logger *slog.Logger
}

// File describes one file that contributed to a digest.
type File struct {
	Root  string `json:"root" yaml:"root"`
	Rel   string `json:"rel" yaml:"rel"`
	Path  string `json:"path" yaml:"path"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// Skipped describes a path left out under UnreadableSkip.
type Skipped struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Result is the outcome of Compute.
type Result struct {
	Digest    string    `json:"digest" yaml:"digest"`
	Algorithm string    `json:"algorithm" yaml:"algorithm"`
	Roots     []string  `json:"roots" yaml:"roots"`
	Files     []File    `json:"files" yaml:"files"`
	Bytes     int64     `json:"bytes" yaml:"bytes"`
	Skipped   []Skipped `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Paths returns the filesystem paths of the hashed files in hash order.
func (r Result) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Compute hashes the contents of every non-excluded file under opts.Roots
// into a single digest. Roots are processed in sorted order and files below
// each directory root in sorted relative-path order. A missing root fails
// the whole computation with ErrRootNotFound before any file is read.
func Compute(ctx context.Context, opts Options) (Result, error) {
	e, err := newEngine(opts)
	if err != nil {
		return Result{}, err
	}
	started := time.Now()

	units, err := e.plan(ctx)
	if err != nil {
		return Result{}, err
	}

	h := e.algorithm.New()
	buf := make([]byte, e.chunkSize)
	result := Result{
		Algorithm: e.algorithm.Name,
		Roots:     e.roots,
		Files:     make([]File, 0, len(units)),
	}
	for _, unit := range units {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		n, ok, err := e.hashFile(h, unit, buf)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			continue
		}
		result.Files = append(result.Files, File{Root: unit.root, Rel: unit.rel, Path: unit.path, Bytes: n})
		result.Bytes += n
	}

	result.Digest = hex.EncodeToString(h.Sum(nil))
	result.Skipped = e.skipped
	e.logger.Debug("fingerprint computed",
		"algorithm", result.Algorithm,
		"digest", result.Digest,
		"files", len(result.Files),
		"bytes", result.Bytes,
		"skipped", len(result.Skipped),
		"elapsed", time.Since(started),
	)
	return result, nil
}

type engine struct {
	fs        afero.Fs
	logger    *slog.Logger
	algorithm Algorithm
	exclude   excluder
	policy    UnreadablePolicy
	chunkSize int
	verbose   bool
	roots     []string
	skipped   []Skipped
}

func newEngine(opts Options) (*engine, error) {
	if len(opts.Roots) == 0 {
		return nil, fmt.Errorf("%w: at least one root path is required", ErrInvalidInput)
	}
	roots := make([]string, 0, len(opts.Roots))
	for i, root := range opts.Roots {
		if strings.TrimSpace(root) == "" {
			return nil, fmt.Errorf("%w: root %d is empty", ErrInvalidInput, i)
		}
		roots = append(roots, filepath.Clean(root))
	}
	sort.Strings(roots)

	algorithm, err := LookupAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	exclude, err := newExcluder(opts.Exclude)
	if err != nil {
		return nil, err
	}
	policy := opts.Unreadable
	if policy == "" {
		policy = UnreadableAbort
	}
	if policy != UnreadableAbort && policy != UnreadableSkip {
		return nil, fmt.Errorf("%w: unknown unreadable policy %q", ErrInvalidInput, policy)
	}
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("%w: chunk size must not be negative", ErrInvalidInput)
	}
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &engine{
		fs:        fsys,
		logger:    logger,
		algorithm: algorithm,
		exclude:   exclude,
		policy:    policy,
		chunkSize: chunkSize,
		verbose:   opts.Verbose,
		roots:     roots,
	}, nil
}

// hashFile streams one file into h. ok is false when the file was skipped
// under UnreadableSkip.
func (e *engine) hashFile(h hash.Hash, unit fileUnit, buf []byte) (n int64, ok bool, err error) {
	if e.verbose {
		e.logger.Info("Hashing " + unit.path)
	} else {
		e.logger.Debug("hashing file", "path", unit.path)
	}

	file, err := e.fs.Open(unit.path)
	if err != nil {
		return 0, false, e.unreadable(unit.path, err)
	}
	defer file.Close()

	for {
		read, readErr := file.Read(buf)
		if read > 0 {
			_, _ = h.Write(buf[:read])
			n += int64(read)
		}
		if errors.Is(readErr, io.EOF) {
			return n, true, nil
		}
		if readErr != nil {
			if n == 0 {
				return 0, false, e.unreadable(unit.path, readErr)
			}
			// Bytes already fed cannot be withdrawn, so skipping here would
			// leave a partial contribution in the digest.
			return 0, false, fmt.Errorf("%w: read %s after %d bytes: %w", ErrFileUnreadable, unit.path, n, readErr)
		}
	}
}

// unreadable applies the configured policy to an access failure on p.
func (e *engine) unreadable(p string, cause error) error {
	if e.policy != UnreadableSkip {
		return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, p, cause)
	}
	e.skipped = append(e.skipped, Skipped{Path: p, Reason: describeAccessError(cause)})
	e.logger.Warn("skipping unreadable path",
		"event_type", "unreadable_skipped",
		"path", p,
		"error", cause,
		"impact", "path does not contribute to the digest",
	)
	return nil
}

func describeAccessError(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}
