package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"driftprint/internal/config"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	lockRetryDelay          = 50 * time.Millisecond

	// Fixed-width so lexical order in SQLite matches chronological order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	runColumns = "id, profile, algorithm, digest, roots_json, exclude_json, file_count, total_bytes, skipped_count, manifest, created_at"
)

// ErrLocked is returned when another writer holds the history lock and the
// context expires before it is released.
var ErrLocked = errors.New("history is locked by another process")

// Open initializes or connects to the history database under cfg.Paths.StateDir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:   db,
		lock: flock.New(cfg.LockPath()),
		now:  time.Now,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record assigns an ID and timestamp to run and persists it.
func (s *Store) Record(ctx context.Context, run Run) (*Run, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(run.Profile) == "" {
		return nil, errors.New("record run: profile is required")
	}
	if run.Digest == "" || run.Algorithm == "" {
		return nil, errors.New("record run: digest and algorithm are required")
	}

	rootsJSON, err := json.Marshal(nonNil(run.Roots))
	if err != nil {
		return nil, fmt.Errorf("marshal roots: %w", err)
	}
	excludeJSON, err := json.Marshal(nonNil(run.Exclude))
	if err != nil {
		return nil, fmt.Errorf("marshal exclude: %w", err)
	}
	manifest, err := msgpack.Marshal(run.Manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	run.ID = uuid.NewString()
	run.CreatedAt = s.now().UTC()

	err = s.withLock(ctx, func() error {
		_, err := s.execWithRetry(ctx,
			`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Profile,
			run.Algorithm,
			run.Digest,
			string(rootsJSON),
			string(excludeJSON),
			run.FileCount,
			run.Bytes,
			run.Skipped,
			manifest,
			run.CreatedAt.Format(timeLayout),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &run, nil
}

// Get returns the run with the given ID, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Latest returns the newest run for profile, or nil when the profile has no history.
func (s *Store) Latest(ctx context.Context, profile string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE profile = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		profile,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// List returns runs for profile newest first. A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, profile string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE profile = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{profile}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Prune deletes all but the newest keep runs of profile and returns the
// number of runs removed.
func (s *Store) Prune(ctx context.Context, profile string, keep int) (int64, error) {
	ctx = ensureContext(ctx)
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must be >= 0, got %d", keep)
	}
	var removed int64
	err := s.withLock(ctx, func() error {
		res, err := s.execWithRetry(ctx,
			`DELETE FROM runs WHERE profile = ? AND id NOT IN (
                SELECT id FROM runs WHERE profile = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
            )`,
			profile, profile, keep,
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrLocked, ctxErr)
		}
		return fmt.Errorf("acquire history lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		rootsJSON   string
		excludeJSON string
		manifest    []byte
		createdRaw  string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Profile,
		&run.Algorithm,
		&run.Digest,
		&rootsJSON,
		&excludeJSON,
		&run.FileCount,
		&run.Bytes,
		&run.Skipped,
		&manifest,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rootsJSON), &run.Roots); err != nil {
		return nil, fmt.Errorf("decode roots for run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(excludeJSON), &run.Exclude); err != nil {
		return nil, fmt.Errorf("decode exclude for run %s: %w", run.ID, err)
	}
	if len(manifest) > 0 {
		if err := msgpack.Unmarshal(manifest, &run.Manifest); err != nil {
			return nil, fmt.Errorf("decode manifest for run %s: %w", run.ID, err)
		}
	}
	created, err := time.Parse(timeLayout, createdRaw)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for run %s: %w", run.ID, err)
	}
	run.CreatedAt = created
	return &run, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
