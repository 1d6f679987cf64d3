package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/logging"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
	"github.com/jamesainslie/dupe/pkg/dupe/workpool"
)

// ErrInvalidRoot is returned when a root does not exist or cannot be resolved.
var ErrInvalidRoot = errors.New("invalid root")

// progressInterval throttles OnProgress calls.
const progressInterval = 10 * time.Millisecond

// Result is the outcome of one enumeration.
type Result struct {
	// Files is the sorted set of canonical file paths.
	Files []string

	// Bytes is the combined size of Files.
	Bytes int64

	// DirsScanned is the number of directory listings merged.
	DirsScanned int64

	// Errors collects directories that could not be listed.
	Errors []types.ScanError

	// Elapsed is the wall time of the run.
	Elapsed time.Duration

	// Aborted is set when the run stopped early. Files is then partial.
	Aborted bool

	// Stats describes the listing stage.
	Stats workpool.Stats
}

// Scanner enumerates files below a set of roots.
type Scanner struct {
	opts Options
	log  *logging.Logger
}

// New creates a new Scanner with the given options.
// Options are validated and defaults are applied.
func New(opts Options) *Scanner {
	_ = opts.Validate()
	return &Scanner{
		opts: opts,
		log:  logging.Get("scanner"),
	}
}

// run holds the state owned by the merging goroutine for one Enumerate call.
type run struct {
	files   map[string]struct{}
	visited map[string]struct{}
	bytes   int64
	dirs    int64
	errors  []types.ScanError

	lastProgress time.Time
	currentPath  string
}

// Enumerate lists roots (recursively when Options.Recursive is set) and
// returns every regular file found, each exactly once. A root naming a
// regular file is included directly. Directories that cannot be read are
// recorded in Result.Errors and treated as empty.
//
// If the run is aborted, Enumerate returns the partial result with Aborted
// set together with control.ErrAborted.
func (s *Scanner) Enumerate(ctx context.Context, roots []string) (*Result, error) {
	start := time.Now()

	r := &run{
		files:   make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}

	seed, err := s.seed(r, roots)
	if err != nil {
		return nil, err
	}
	s.log.Info("enumeration started", "roots", len(roots), "recursive", s.opts.Recursive, "workers", s.opts.DirWorkers)

	stage := workpool.Stage[string, listing]{
		Workers:     s.opts.DirWorkers,
		MaxInFlight: s.opts.MaxInFlight,
		Control:     s.opts.Control,
		Process:     s.list,
	}

	stats, runErr := stage.Run(ctx, seed, func(l listing) ([]string, error) {
		return s.merge(r, l), nil
	})
	s.reportProgress(r, true)

	res := &Result{
		Files:       sortedKeys(r.files),
		Bytes:       r.bytes,
		DirsScanned: r.dirs,
		Errors:      r.errors,
		Elapsed:     time.Since(start),
		Stats:       stats,
	}

	if runErr != nil {
		if errors.Is(runErr, control.ErrAborted) {
			res.Aborted = true
			s.log.Info("enumeration aborted", "dirs", res.DirsScanned, "files", len(res.Files))
		}
		return res, runErr
	}

	s.log.Info("enumeration finished",
		"dirs", res.DirsScanned,
		"files", len(res.Files),
		"bytes", res.Bytes,
		"errors", len(res.Errors),
		"elapsed", res.Elapsed,
		"peak_in_flight", stats.PeakInFlight,
	)
	return res, nil
}

// seed canonicalises roots. Directories become the initial frontier and
// regular files go straight into the index. Roots matching Exclude are
// dropped like any other excluded path.
func (s *Scanner) seed(r *run, roots []string) ([]string, error) {
	var frontier []string
	for _, root := range roots {
		path, info, err := canonicalRoot(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRoot, root, err)
		}
		if s.isExcluded(path) {
			s.log.Debug("root excluded", "root", root)
			continue
		}

		switch {
		case info.IsDir():
			if _, seen := r.visited[path]; seen {
				continue
			}
			r.visited[path] = struct{}{}
			frontier = append(frontier, path)
		case info.Mode().IsRegular():
			if info.Size() >= s.opts.MinSize {
				s.addFile(r, path, info.Size())
			}
		default:
			return nil, fmt.Errorf("%w: %s: not a directory or regular file", ErrInvalidRoot, root)
		}
	}
	return frontier, nil
}

func canonicalRoot(root string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", nil, err
	}
	path, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	return path, info, nil
}

// merge folds one listing into the run state and returns the subdirectories
// to enqueue. It runs on the stage controller goroutine only.
func (s *Scanner) merge(r *run, l listing) []string {
	r.dirs++
	r.currentPath = l.dir

	if l.err != nil {
		s.log.Debug("directory unreadable", "path", l.dir, "error", l.err)
		r.errors = append(r.errors, types.ScanError{Path: l.dir, Error: l.err.Error()})
	}
	r.errors = append(r.errors, l.skipped...)

	for _, f := range l.files {
		s.addFile(r, f.path, f.size)
	}
	s.reportProgress(r, false)

	if !s.opts.Recursive {
		return nil
	}

	var next []string
	for _, d := range l.dirs {
		if _, seen := r.visited[d]; seen {
			continue
		}
		r.visited[d] = struct{}{}
		next = append(next, d)
	}
	return next
}

func (s *Scanner) addFile(r *run, path string, size int64) {
	if _, seen := r.files[path]; seen {
		return
	}
	r.files[path] = struct{}{}
	r.bytes += size
}

// reportProgress calls the progress callback if configured, at most once per
// progressInterval unless force is set.
func (s *Scanner) reportProgress(r *run, force bool) {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now()
	if !force && now.Sub(r.lastProgress) < progressInterval {
		return
	}
	r.lastProgress = now

	s.opts.OnProgress(types.ScanProgress{
		DirsScanned: r.dirs,
		FilesFound:  int64(len(r.files)),
		BytesFound:  r.bytes,
		CurrentPath: r.currentPath,
	})
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
