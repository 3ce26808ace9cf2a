// Package history persists fingerprint runs in a SQLite database so later
// runs can be compared against a recorded baseline.
//
// Each run is keyed by a UUID and carries the digest, algorithm, roots,
// exclusions and a msgpack-encoded manifest of the hashed files. Writers
// serialize on an exclusive lock file next to the database.
package history
