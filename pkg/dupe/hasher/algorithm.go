package hasher

import (
	"crypto/sha1" //nolint:gosec // content identity, not security
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names a content digest.
type Algorithm string

// Supported digests.
const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	XXHash Algorithm = "xxhash"
)

// DefaultAlgorithm is used when none is configured.
const DefaultAlgorithm = SHA1

// ErrUnknownAlgorithm is returned for an unsupported digest name.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Algorithms lists the supported digests.
func Algorithms() []Algorithm {
	return []Algorithm{SHA1, SHA256, XXHash}
}

// ParseAlgorithm parses a digest name case-insensitively. Empty selects
// DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return DefaultAlgorithm, nil
	}
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if _, err := a.New(); err != nil {
		return "", err
	}
	return a, nil
}

// New returns a fresh accumulator for a.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case XXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// Size returns the digest length in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	h, err := a.New()
	if err != nil {
		return 0
	}
	return h.Size()
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}
