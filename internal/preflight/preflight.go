package preflight

import (
	"context"
	"fmt"

	"driftprint/internal/config"
	"driftprint/internal/fingerprint"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail" yaml:"detail"`
}

// RunAll executes every preflight check for the given config: state and log
// directory access, the configured algorithm, and root readability for each
// profile.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckAlgorithm(cfg.Hashing.Algorithm))

	for _, name := range cfg.ProfileNames() {
		if ctx.Err() != nil {
			break
		}
		profile, err := cfg.Profile(name)
		if err != nil {
			results = append(results, Result{Name: "Profile " + name, Detail: err.Error()})
			continue
		}
		results = append(results, CheckRootsReadable("Profile "+name, profile.Roots)...)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckAlgorithm verifies that name resolves to a registered hash algorithm.
func CheckAlgorithm(name string) Result {
	const label = "Hash algorithm"
	algo, err := fingerprint.LookupAlgorithm(name)
	if err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: fmt.Sprintf("%s (%d hex chars)", algo.Name, algo.DigestLength())}
}
