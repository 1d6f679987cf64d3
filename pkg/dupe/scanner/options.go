// Package scanner enumerates the regular files below a set of root
// directories. Directory listings run on a bounded worker pool while a single
// controller goroutine owns the frontier queue and the file index, so each
// file is reported exactly once however the listings interleave.
package scanner

import (
	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
	"github.com/jamesainslie/dupe/pkg/dupe/workpool"
)

// Options configures the scanner behavior.
type Options struct {
	// Recursive descends into subdirectories. When false only the
	// immediate entries of each root are listed.
	Recursive bool

	// SkipSymlinks drops symbolic links instead of resolving them to their
	// canonical target. Followed links are deduplicated through the same
	// visited and file sets as everything else, so cycles terminate.
	SkipSymlinks bool

	// MinSize is the minimum file size in bytes to include in results.
	MinSize int64

	// Exclude contains glob patterns or path prefixes to skip. Patterns are
	// matched against the base name and the full path; an excluded
	// directory is not descended into. Roots are matched too, after
	// symlinks in them are resolved.
	Exclude []string

	// DirWorkers is the number of concurrent directory listing workers.
	DirWorkers int

	// MaxInFlight bounds listings that are dispatched but not yet merged.
	MaxInFlight int

	// Control supplies the abort latch and pause gate. Nil uses a private
	// controller stopped only by context cancellation.
	Control *control.Controller

	// OnProgress is called periodically from the merging goroutine.
	OnProgress func(types.ScanProgress)
}

// DefaultOptions returns options with sensible defaults for most systems.
func DefaultOptions() Options {
	return Options{
		Recursive:      config.DefaultRecursive,
		SkipSymlinks:   !config.DefaultFollowSymlinks,
		Exclude:        config.DefaultExclusions,
		DirWorkers:     config.DefaultDirWorkers,
		MaxInFlight:    config.DefaultMaxInFlight,
	}
}

// Validate applies defaults for out-of-range values.
func (o *Options) Validate() error {
	if o.DirWorkers < 1 {
		o.DirWorkers = config.DefaultDirWorkers
	}
	o.DirWorkers = workpool.ClampWorkers(o.DirWorkers)
	if o.MaxInFlight < 1 {
		o.MaxInFlight = config.DefaultMaxInFlight
	}
	if o.MinSize < 0 {
		o.MinSize = 0
	}
	return nil
}
