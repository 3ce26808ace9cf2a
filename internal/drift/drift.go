// Package drift compares a freshly computed fingerprint with a recorded
// baseline run.
package drift

import (
	"slices"
	"sort"

	"driftprint/internal/fingerprint"
	"driftprint/internal/history"
)

// Status summarises a comparison.
type Status string

const (
	StatusUnchanged    Status = "unchanged"
	StatusChanged      Status = "changed"
	StatusIncomparable Status = "incomparable"
	StatusNoBaseline   Status = "no_baseline"
)

// Report describes how the current tree differs from the baseline.
//
// Added and Removed are derived from the stored manifest and only list
// membership changes; a file whose contents changed in place shows up as a
// digest change with no path listed.
type Report struct {
	Status         Status   `json:"status" yaml:"status"`
	Profile        string   `json:"profile,omitempty" yaml:"profile,omitempty"`
	BaselineID     string   `json:"baseline_id,omitempty" yaml:"baseline_id,omitempty"`
	BaselineDigest string   `json:"baseline_digest,omitempty" yaml:"baseline_digest,omitempty"`
	CurrentDigest  string   `json:"current_digest" yaml:"current_digest"`
	Algorithm      string   `json:"algorithm" yaml:"algorithm"`
	Added          []string `json:"added,omitempty" yaml:"added,omitempty"`
	Removed        []string `json:"removed,omitempty" yaml:"removed,omitempty"`
	Resized        []string `json:"resized,omitempty" yaml:"resized,omitempty"`
	Reason         string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Drifted reports whether the comparison found a difference that should fail a check.
func (r Report) Drifted() bool {
	return r.Status == StatusChanged || r.Status == StatusIncomparable
}

// Compare checks current against baseline. A nil baseline yields StatusNoBaseline.
func Compare(current fingerprint.Result, baseline *history.Run) Report {
	report := Report{
		CurrentDigest: current.Digest,
		Algorithm:     current.Algorithm,
	}
	if baseline == nil {
		report.Status = StatusNoBaseline
		report.Reason = "no recorded run to compare against"
		return report
	}
	report.Profile = baseline.Profile
	report.BaselineID = baseline.ID
	report.BaselineDigest = baseline.Digest

	if baseline.Algorithm != current.Algorithm {
		report.Status = StatusIncomparable
		report.Reason = "algorithm changed from " + baseline.Algorithm + " to " + current.Algorithm
		return report
	}
	if !sameRoots(baseline.Roots, current.Roots) {
		report.Status = StatusIncomparable
		report.Reason = "root set changed"
		return report
	}

	if baseline.Digest == current.Digest {
		report.Status = StatusUnchanged
		return report
	}
	report.Status = StatusChanged

	previous := make(map[string]history.Entry, len(baseline.Manifest))
	for _, entry := range baseline.Manifest {
		previous[entry.Key()] = entry
	}
	seen := make(map[string]struct{}, len(current.Files))
	for _, file := range current.Files {
		key := history.Entry{Root: file.Root, Rel: file.Rel}.Key()
		seen[key] = struct{}{}
		old, ok := previous[key]
		switch {
		case !ok:
			report.Added = append(report.Added, file.Path)
		case old.Bytes != file.Bytes:
			report.Resized = append(report.Resized, file.Path)
		}
	}
	for _, entry := range baseline.Manifest {
		if _, ok := seen[entry.Key()]; !ok {
			report.Removed = append(report.Removed, entry.Path)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.Resized)
	return report
}

func sameRoots(a, b []string) bool {
	x := slices.Clone(a)
	y := slices.Clone(b)
	sort.Strings(x)
	sort.Strings(y)
	return slices.Equal(x, y)
}
