package fingerprint

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = "sha256"

// Algorithm names a streaming hash used to build fingerprints.
type Algorithm struct {
	Name string
	new  func() hash.Hash
}

var algorithms = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake3": func() hash.Hash { return blake3.New() },
	// xxh3 is not cryptographic; it only suits change detection.
	"xxh3": func() hash.Hash { return xxh3.New() },
}

// LookupAlgorithm resolves name (case-insensitive). An empty name selects
// DefaultAlgorithm.
func LookupAlgorithm(name string) (Algorithm, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultAlgorithm
	}
	fn, ok := algorithms[key]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: unknown algorithm %q (supported: %s)",
			ErrInvalidInput, name, strings.Join(AlgorithmNames(), ", "))
	}
	return Algorithm{Name: key, new: fn}, nil
}

// AlgorithmNames lists the supported algorithm names in sorted order.
func AlgorithmNames() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns a fresh hash context.
func (a Algorithm) New() hash.Hash {
	if a.new == nil {
		return sha256.New()
	}
	return a.new()
}

// DigestLength reports the length of the hex digest produced by a.
func (a Algorithm) DigestLength() int {
	return a.New().Size() * 2
}
