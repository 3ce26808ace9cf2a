package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"driftprint/internal/apperrors"
	"driftprint/internal/config"
	"driftprint/internal/drift"
	"driftprint/internal/fingerprint"
	"driftprint/internal/history"
	"driftprint/internal/testsupport"
)

const worldHelloSHA256 = "8376118fc0230e6054e782fb31ae52ebcfd551342d8d026c209997e0127b6f74"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	treeDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	tree := testsupport.WriteTree(t, filepath.Join(testsupport.BaseDir(cfg), "dirA"), map[string]string{
		"b.txt": "hello",
		"a.txt": "world",
	})

	configPath := filepath.Join(testsupport.BaseDir(cfg), "driftprint.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[profiles.app]
roots = [%q]
exclude = ["*.bak*"]

[profiles.gone]
roots = [%q]
`, cfg.Paths.StateDir, cfg.Paths.LogDir, tree, filepath.Join(testsupport.BaseDir(cfg), "missing"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, treeDir: tree}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if got := apperrors.ExitCode(err); got != want {
		t.Fatalf("expected exit code %d, got %d (err=%v)", want, got, err)
	}
}

func TestHashGoldenDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"hash", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if strings.TrimSpace(out) != worldHelloSHA256 {
		t.Fatalf("unexpected digest %q", out)
	}

	testsupport.WriteTree(t, env.treeDir, map[string]string{"config.bak": "old"})
	out, _, err = runCLI(t, []string{"hash", "-e", "*.bak*", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash with exclude: %v", err)
	}
	if strings.TrimSpace(out) != worldHelloSHA256 {
		t.Fatalf("excluded file changed digest: %q", out)
	}

	out, _, err = runCLI(t, []string{"hash", "--profile", "app"}, env.configPath)
	if err != nil {
		t.Fatalf("hash profile: %v", err)
	}
	if strings.TrimSpace(out) != worldHelloSHA256 {
		t.Fatalf("profile exclusions not applied: %q", out)
	}
}

func TestHashAlgorithmFlag(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"hash", "-a", "md5", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash md5: %v", err)
	}
	if strings.TrimSpace(out) != "5acd1fb6f07255681a2f6187123c0d39" {
		t.Fatalf("unexpected md5 digest %q", out)
	}

	_, _, err = runCLI(t, []string{"hash", "-a", "crc32", env.treeDir}, env.configPath)
	if !errors.Is(err, fingerprint.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown algorithm, got %v", err)
	}
	requireExitCode(t, err, apperrors.ExitUsage)
}

func TestHashErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"hash", filepath.Join(env.treeDir, "missing", "path")}, env.configPath)
	if !errors.Is(err, fingerprint.ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}
	requireExitCode(t, err, apperrors.ExitError)

	_, _, err = runCLI(t, []string{"hash"}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)

	_, _, err = runCLI(t, []string{"hash", "--profile", "app", env.treeDir}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)

	_, _, err = runCLI(t, []string{"hash", "--no-such-flag"}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)

	_, _, err = runCLI(t, []string{"hash", "--output", "xml", env.treeDir}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)
}

func TestHashStructuredOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"hash", "--output", "json", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash json: %v", err)
	}
	var result fingerprint.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if result.Digest != worldHelloSHA256 || result.Algorithm != "sha256" || len(result.Files) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Files[0].Rel != "a.txt" || result.Files[1].Rel != "b.txt" {
		t.Fatalf("unexpected file order: %+v", result.Files)
	}

	out, _, err = runCLI(t, []string{"hash", "-o", "yaml", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash yaml: %v", err)
	}
	requireContains(t, out, "digest: "+worldHelloSHA256)
	requireContains(t, out, "rel: a.txt")
}

func TestHashVerboseLogsToStderr(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, err := runCLI(t, []string{"hash", "-v", env.treeDir}, env.configPath)
	if err != nil {
		t.Fatalf("hash -v: %v", err)
	}
	requireContains(t, stderr, "Hashing "+filepath.Join(env.treeDir, "a.txt"))
	requireContains(t, stderr, "Hashing "+filepath.Join(env.treeDir, "b.txt"))
	if strings.Contains(out, "Hashing") {
		t.Fatalf("verbose output leaked to stdout: %q", out)
	}
}

func TestSnapshotCheckAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "app"}, env.configPath)
	if err == nil {
		t.Fatal("expected check without baseline to fail")
	}
	requireExitCode(t, err, apperrors.ExitError)
	requireContains(t, out, string(drift.StatusNoBaseline))

	out, _, err = runCLI(t, []string{"snapshot", "app"}, env.configPath)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	requireContains(t, out, worldHelloSHA256)

	out, _, err = runCLI(t, []string{"check", "app"}, env.configPath)
	if err != nil {
		t.Fatalf("check unchanged: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK] unchanged")

	testsupport.WriteTree(t, env.treeDir, map[string]string{"c.txt": "new", "config.bak": "ignored"})
	out, _, err = runCLI(t, []string{"check", "app"}, env.configPath)
	if !errors.Is(err, apperrors.ErrDrift) {
		t.Fatalf("expected drift, got %v", err)
	}
	requireExitCode(t, err, apperrors.ExitDrift)
	requireContains(t, out, "Added (1)")
	requireContains(t, out, filepath.Join(env.treeDir, "c.txt"))
	if strings.Contains(out, "config.bak") {
		t.Fatalf("excluded file reported as drift: %s", out)
	}

	out, _, err = runCLI(t, []string{"check", "--update", "-o", "json", "app"}, env.configPath)
	if !errors.Is(err, apperrors.ErrDrift) {
		t.Fatalf("expected drift on update run, got %v", err)
	}
	var report drift.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Status != drift.StatusChanged || len(report.Added) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if _, _, err := runCLI(t, []string{"check", "app"}, env.configPath); err != nil {
		t.Fatalf("expected updated baseline to match: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "app", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 2 {
		t.Fatalf("expected two runs, got %d", len(runs))
	}
	if runs[1].Digest != worldHelloSHA256 || runs[0].FileCount != 3 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "app"}, env.configPath)
	if err != nil {
		t.Fatalf("history table: %v", err)
	}
	requireContains(t, out, "Algorithm")
	requireContains(t, out, runs[0].ID[:8])

	out, _, err = runCLI(t, []string{"history", "app", "-n", "1", "-o", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("history yaml: %v", err)
	}
	requireContains(t, out, runs[0].Digest)
	if strings.Contains(out, runs[1].ID) {
		t.Fatalf("expected --limit 1 to hide the older run:\n%s", out)
	}

	_, _, err = runCLI(t, []string{"history", "app", "-o", "xml"}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)

	out, _, err = runCLI(t, []string{"history", "show", "--files", runs[1].ID}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, worldHelloSHA256)
	requireContains(t, out, filepath.Join(env.treeDir, "a.txt"))

	out, _, err = runCLI(t, []string{"history", "prune", "app", "--keep", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	out, _, err = runCLI(t, []string{"history", "other"}, env.configPath)
	if err != nil {
		t.Fatalf("history empty: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestSnapshotMissingRootRecordsNothing(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"snapshot", "gone"}, env.configPath)
	if !errors.Is(err, fingerprint.ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.List(t.Context(), "gone", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs recorded, got %d", len(runs))
	}

	_, _, err = runCLI(t, []string{"snapshot", "unknown"}, env.configPath)
	requireExitCode(t, err, apperrors.ExitUsage)
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Profiles: 2")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[profiles.app]")
	requireContains(t, out, env.cfg.Paths.StateDir)
}

func TestDoctor(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail for the missing profile root")
	}
	requireContains(t, out, "Profile app")
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "does not exist")
	requireContains(t, out, "[OK]")
}

func TestRunExitCodes(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	var stdout, stderr bytes.Buffer

	if code := run(ctx, []string{"--config", env.configPath, "snapshot", "app"}, &stdout, &stderr); code != apperrors.ExitOK {
		t.Fatalf("snapshot exit %d: %s", code, stderr.String())
	}

	if err := os.WriteFile(filepath.Join(env.treeDir, "c.txt"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	stderr.Reset()
	if code := run(ctx, []string{"--config", env.configPath, "check", "app"}, &stdout, &stderr); code != apperrors.ExitDrift {
		t.Fatalf("expected drift exit code, got %d", code)
	}
	if strings.Contains(stderr.String(), "driftprint: ") {
		t.Fatalf("drift should not be reported as an error: %s", stderr.String())
	}

	stderr.Reset()
	if code := run(ctx, []string{"hash", "-a", "crc32", env.treeDir}, &stdout, &stderr); code != apperrors.ExitUsage {
		t.Fatalf("expected usage exit code, got %d", code)
	}
	requireContains(t, stderr.String(), "driftprint: ")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	stderr.Reset()
	if code := run(canceled, []string{"--config", env.configPath, "hash", env.treeDir}, &stdout, &stderr); code != apperrors.ExitError {
		t.Fatalf("expected error exit code after cancellation, got %d", code)
	}
	if strings.Contains(stderr.String(), "driftprint: ") {
		t.Fatalf("cancellation should be silent: %s", stderr.String())
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "driftprint ")

	out, _, err = runCLI(t, []string{"version", "-o", "yaml"}, "")
	if err != nil {
		t.Fatalf("version yaml: %v", err)
	}
	requireContains(t, out, "version: ")

	_, _, err = runCLI(t, []string{"version", "extra"}, "")
	requireExitCode(t, err, apperrors.ExitUsage)
}
