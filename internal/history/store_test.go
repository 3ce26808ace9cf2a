package history_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftprint/internal/fingerprint"
	"driftprint/internal/history"
	"driftprint/internal/testsupport"
)

func sampleResult(digest string, rels ...string) fingerprint.Result {
	result := fingerprint.Result{
		Digest:    digest,
		Algorithm: "sha256",
		Roots:     []string{"/srv/app"},
	}
	for _, rel := range rels {
		result.Files = append(result.Files, fingerprint.File{Root: "/srv/app", Rel: rel, Path: "/srv/app/" + rel, Bytes: 5})
		result.Bytes += 5
	}
	return result
}

func steppedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestRecordRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	run := history.NewRun("app", []string{"*.bak*"}, sampleResult("abc123", "a.txt", "sub/b.txt"))
	run.Skipped = 1

	saved, err := store.Record(ctx, run)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.FileExists(t, cfg.HistoryPath())

	fetched, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "app", fetched.Profile)
	assert.Equal(t, "sha256", fetched.Algorithm)
	assert.Equal(t, "abc123", fetched.Digest)
	assert.Equal(t, []string{"/srv/app"}, fetched.Roots)
	assert.Equal(t, []string{"*.bak*"}, fetched.Exclude)
	assert.Equal(t, 2, fetched.FileCount)
	assert.Equal(t, int64(10), fetched.Bytes)
	assert.Equal(t, 1, fetched.Skipped)
	assert.Equal(t, []history.Entry{
		{Root: "/srv/app", Rel: "a.txt", Path: "/srv/app/a.txt", Bytes: 5},
		{Root: "/srv/app", Rel: "sub/b.txt", Path: "/srv/app/sub/b.txt", Bytes: 5},
	}, fetched.Manifest)
	assert.True(t, saved.CreatedAt.Equal(fetched.CreatedAt), "created_at should survive storage")
}

func TestGetAndLatestMissing(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	run, err := store.Get(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, run)

	latest, err := store.Latest(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRecordValidatesRun(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	_, err := store.Record(ctx, history.Run{Digest: "abc", Algorithm: "sha256"})
	assert.Error(t, err, "profile is required")

	_, err = store.Record(ctx, history.Run{Profile: "app"})
	assert.Error(t, err, "digest is required")
}

func TestLatestAndListOrdering(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	history.SetClock(store, steppedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	ctx := context.Background()

	for _, digest := range []string{"one", "two", "three"} {
		_, err := store.Record(ctx, history.NewRun("app", nil, sampleResult(digest)))
		require.NoError(t, err)
	}
	_, err := store.Record(ctx, history.NewRun("other", nil, sampleResult("elsewhere")))
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "app")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "three", latest.Digest)

	runs, err := store.List(ctx, "app", 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"three", "two", "one"}, []string{runs[0].Digest, runs[1].Digest, runs[2].Digest})
	assert.Empty(t, runs[0].Exclude)

	limited, err := store.List(ctx, "app", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestPruneKeepsNewest(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	history.SetClock(store, steppedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	ctx := context.Background()

	for _, digest := range []string{"a", "b", "c", "d"} {
		_, err := store.Record(ctx, history.NewRun("app", nil, sampleResult(digest)))
		require.NoError(t, err)
	}
	other, err := store.Record(ctx, history.NewRun("other", nil, sampleResult("x")))
	require.NoError(t, err)

	removed, err := store.Prune(ctx, "app", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := store.List(ctx, "app", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "d", runs[0].Digest)

	untouched, err := store.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.NotNil(t, untouched, "prune must not touch other profiles")

	_, err = store.Prune(ctx, "app", -1)
	assert.Error(t, err)
}

func TestRecordFailsWhileLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	holder := flock.New(cfg.LockPath())
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = holder.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = store.Record(ctx, history.NewRun("app", nil, sampleResult("abc")))
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrLocked)

	require.NoError(t, holder.Unlock())
	_, err = store.Record(context.Background(), history.NewRun("app", nil, sampleResult("abc")))
	assert.NoError(t, err)
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Paths.StateDir, 0o755))

	db, err := sql.Open("sqlite", filepath.Join(cfg.Paths.StateDir, "history.db"))
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE schema_version (version INTEGER NOT NULL); INSERT INTO schema_version (version) VALUES (99);")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = history.Open(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, history.ErrSchemaMismatch)
}

func TestReopenPreservesRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := history.Open(cfg)
	require.NoError(t, err)
	saved, err := first.Record(context.Background(), history.NewRun("app", nil, sampleResult("persisted", "a.txt")))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := testsupport.MustOpenHistory(t, cfg)
	latest, err := second.Latest(context.Background(), "app")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, saved.ID, latest.ID)
	assert.Len(t, latest.Manifest, 1)
}
