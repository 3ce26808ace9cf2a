// Package main hosts the driftprint CLI entrypoint and command graph.
//
// The Cobra command tree computes fingerprints for ad-hoc paths or named
// profiles, records baselines in the history store, compares fresh runs
// against them, and scaffolds configuration. Digests and reports go to
// stdout; logs go to stderr and the configured log file.
package main
