// Package index aggregates hash records into duplicate groups.
package index

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// ErrInconsistentDigest is returned when two records share a digest but
// disagree on size. It indicates broken hashing and is fatal to a run.
var ErrInconsistentDigest = errors.New("identical digest with different sizes")

type bucket struct {
	digest types.Digest
	size   int64
	paths  []string
}

// DigestIndex is a digest -> paths multimap.
// It is not safe for concurrent use; the hash stage controller owns it.
type DigestIndex struct {
	buckets map[string]*bucket
	records int
}

// New returns an empty index.
func New() *DigestIndex {
	return &DigestIndex{buckets: make(map[string]*bucket)}
}

// Insert adds rec to the index.
func (x *DigestIndex) Insert(rec types.HashRecord) error {
	key := rec.Digest.Key()
	b, ok := x.buckets[key]
	if !ok {
		x.buckets[key] = &bucket{
			digest: slices.Clone(rec.Digest),
			size:   rec.Size,
			paths:  []string{rec.Path},
		}
		x.records++
		return nil
	}

	if b.size != rec.Size {
		return fmt.Errorf("%w: %s is %d bytes, %s is %d bytes (digest %s)",
			ErrInconsistentDigest, b.paths[0], b.size, rec.Path, rec.Size, rec.Digest)
	}
	b.paths = append(b.paths, rec.Path)
	x.records++
	return nil
}

// Len returns the number of inserted records.
func (x *DigestIndex) Len() int {
	return x.records
}

// Digests returns the number of distinct digests.
func (x *DigestIndex) Digests() int {
	return len(x.buckets)
}

// Groups returns every digest shared by two or more files, ordered by digest
// bytes, with members in natural base-name order.
func (x *DigestIndex) Groups() []types.DuplicateGroup {
	var groups []types.DuplicateGroup
	for _, b := range x.buckets {
		if len(b.paths) < 2 {
			continue
		}
		paths := slices.Clone(b.paths)
		SortPaths(paths)
		groups = append(groups, types.DuplicateGroup{
			Digest: b.digest,
			Size:   b.size,
			Paths:  paths,
		})
	}

	slices.SortFunc(groups, func(a, b types.DuplicateGroup) int {
		return a.Digest.Compare(b.Digest)
	})
	return groups
}

// SortPaths orders paths by natural, case-insensitive comparison of the
// base name, breaking ties with the full path.
func SortPaths(paths []string) {
	slices.SortFunc(paths, ComparePaths)
}

// ComparePaths is the ordering used by SortPaths.
func ComparePaths(a, b string) int {
	if c := NaturalCompare(filepath.Base(a), filepath.Base(b)); c != 0 {
		return c
	}
	if c := NaturalCompare(a, b); c != 0 {
		return c
	}
	// Paths that differ only in case still get a stable order.
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
