package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// fileEntry is a regular file found by a listing.
type fileEntry struct {
	path string
	size int64
}

// listing is the result of reading one directory.
type listing struct {
	dir     string
	files   []fileEntry
	dirs    []string
	skipped []types.ScanError
	err     error
}

// list reads the immediate entries of dir. It runs on a worker goroutine and
// touches no shared state.
//
// Each entry is re-checked with Lstat so entries removed since ReadDir are
// dropped quietly. Both result lists are sorted.
func (s *Scanner) list(ctx context.Context, dir string) listing {
	out := listing{dir: dir}

	if ctx.Err() != nil || (s.opts.Control != nil && s.opts.Control.Aborted()) {
		return out
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		out.err = err
		return out
	}

	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}

		path := filepath.Join(dir, name)
		if s.isExcluded(path) {
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				out.skipped = append(out.skipped, types.ScanError{Path: path, Error: err.Error()})
			}
			continue
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			if s.opts.SkipSymlinks {
				continue
			}
			path, info, err = resolveLink(path)
			if err != nil || s.isExcluded(path) {
				// Dangling link.
				continue
			}
		}

		switch mode := info.Mode(); {
		case mode.IsDir():
			out.dirs = append(out.dirs, path)
		case mode.IsRegular():
			if info.Size() >= s.opts.MinSize {
				out.files = append(out.files, fileEntry{path: path, size: info.Size()})
			}
		}
		// Sockets, devices and pipes are skipped.
	}

	slices.SortFunc(out.files, func(a, b fileEntry) int {
		return strings.Compare(a.path, b.path)
	})
	slices.Sort(out.dirs)
	return out
}

// resolveLink returns the canonical target of a symbolic link.
func resolveLink(path string) (string, os.FileInfo, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", nil, err
	}
	return target, info, nil
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesExclusionPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern checks if a path matches a single exclusion pattern.
func matchesExclusionPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	// Prefix match for directories.
	if path == pattern {
		return true
	}
	if len(path) > len(pattern) && path[:len(pattern)+1] == pattern+string(filepath.Separator) {
		return true
	}

	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	return false
}
