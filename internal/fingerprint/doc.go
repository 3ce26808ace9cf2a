// Package fingerprint computes deterministic content fingerprints for sets of
// files and directories.
//
// A fingerprint is one streaming hash fed with the bytes of every included
// file, in a canonical order:
//   - roots are cleaned lexically and sorted by path
//   - files below a directory root are sorted by their slash-separated
//     relative path (NFC form)
//
// File metadata (modes, owners, timestamps, link targets) never reaches the
// hash, so two trees with the same relative layout and contents fingerprint
// identically regardless of creation order or platform.
//
// Primary entry points:
//   - Compute: hashes a set of roots and returns a Result
//   - LookupAlgorithm: resolves a configured algorithm name
package fingerprint
