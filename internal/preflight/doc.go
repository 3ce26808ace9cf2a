// Package preflight provides readiness checks for the filesystem paths
// driftprint depends on.
//
// The CLI "driftprint doctor" command runs RunAll and renders the results.
// snapshot and check run CheckRootsReadable first and log a warning per
// failing root; the fingerprint engine still decides whether the run fails.
package preflight
