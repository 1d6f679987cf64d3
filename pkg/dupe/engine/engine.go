// Package engine is the public entry point of the duplicate finder. It runs
// the enumeration and hashing stages under one controller and reports what
// happens through a stream of events.
//
// A run is either started in the background (StartEnumeration,
// StartHashing, followed by Wait) or executed synchronously (Enumerate,
// FindDuplicates, Run). Only one run may be active at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/hasher"
	"github.com/jamesainslie/dupe/pkg/dupe/logging"
	"github.com/jamesainslie/dupe/pkg/dupe/scanner"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
	"github.com/jamesainslie/dupe/pkg/dupe/workpool"
)

// ErrBusy is returned when a run is started while another is active.
var ErrBusy = control.ErrBusy

// Options configures an Engine.
type Options struct {
	// Recursive is the default for Run; the Start/Enumerate calls take it
	// explicitly.
	Recursive bool

	// SkipSymlinks drops symbolic links during enumeration. By default links
	// are resolved to their target.
	SkipSymlinks bool

	// Exclude lists glob patterns or path prefixes to skip.
	Exclude []string

	// MinSize drops files smaller than this many bytes.
	MinSize int64

	// DirWorkers is the number of directory listing goroutines.
	DirWorkers int

	// Concurrency is the initial number of hashing goroutines.
	// SetConcurrency changes it for later runs.
	Concurrency int

	// MaxInFlight bounds outstanding tasks per stage.
	MaxInFlight int

	// Algorithm selects the content digest.
	Algorithm hasher.Algorithm

	// ChunkSize is the hashing read size in bytes.
	ChunkSize int64

	// OnEvent receives every event. It is called from the goroutine merging
	// stage results and must return promptly. Nil drops events.
	OnEvent func(Event)
}

// Report summarises a complete run.
type Report struct {
	RunID       uuid.UUID
	Algorithm   hasher.Algorithm
	Roots       []string
	Files       int
	DirsScanned int64
	Hashed      int
	BytesHashed int64
	Groups      []types.DuplicateGroup
	Errors      []types.ScanError
	Elapsed     time.Duration
}

// Wasted returns the bytes reclaimable across all groups.
func (r *Report) Wasted() int64 {
	var total int64
	for i := range r.Groups {
		total += r.Groups[i].Wasted()
	}
	return total
}

// Engine coordinates runs. It is safe for concurrent use.
type Engine struct {
	opts Options
	ctrl *control.Controller
	log  *logging.Logger

	mu          sync.Mutex
	concurrency int
	bg          *backgroundRun
}

// backgroundRun is one run started by StartEnumeration or StartHashing.
// err is written before done is closed.
type backgroundRun struct {
	done chan struct{}
	err  error
}

// New validates opts and returns an idle engine.
func New(opts Options) (*Engine, error) {
	algo, err := hasher.ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	opts.Algorithm = algo

	if opts.Concurrency < 1 {
		opts.Concurrency = config.DefaultHashWorkers
	}
	if opts.DirWorkers < 1 {
		opts.DirWorkers = config.DefaultDirWorkers
	}
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = config.DefaultMaxInFlight
	}
	if opts.MinSize < 0 {
		return nil, fmt.Errorf("min size: %w", types.ErrNegativeSize)
	}

	return &Engine{
		opts:        opts,
		ctrl:        control.New(),
		log:         logging.Get("engine"),
		concurrency: workpool.ClampWorkers(opts.Concurrency),
	}, nil
}

// SetConcurrency sets the number of hashing goroutines for runs started
// afterwards. n is clamped to [1,64]; the applied value is returned.
func (e *Engine) SetConcurrency(n int) int {
	n = workpool.ClampWorkers(n)
	e.mu.Lock()
	e.concurrency = n
	e.mu.Unlock()
	return n
}

// Concurrency returns the hashing worker count for the next run.
func (e *Engine) Concurrency() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.concurrency
}

// SetAbort stops the current run at its next checkpoint.
func (e *Engine) SetAbort() {
	e.ctrl.Abort()
}

// ClearAbort resets the abort latch. It has no effect while a run is active.
func (e *Engine) ClearAbort() bool {
	return e.ctrl.ClearAbort()
}

// Aborted reports whether the abort latch is set.
func (e *Engine) Aborted() bool {
	return e.ctrl.Aborted()
}

// SetPause holds or releases workers. Work already in progress continues.
func (e *Engine) SetPause(paused bool) {
	e.ctrl.SetPaused(paused)
}

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool {
	return e.ctrl.Paused()
}

// State returns the run state.
func (e *Engine) State() control.State {
	return e.ctrl.State()
}

// begin starts a run and returns its ID and hashing concurrency.
func (e *Engine) begin() (uuid.UUID, int, error) {
	if err := e.ctrl.Begin(); err != nil {
		return uuid.Nil, 0, err
	}
	return uuid.New(), e.Concurrency(), nil
}

func (e *Engine) finish(id uuid.UUID) {
	state := e.ctrl.Finish()
	e.log.Debug("run finished", "run", id, "state", state)
}

func (e *Engine) emit(ev Event) {
	if e.opts.OnEvent != nil {
		e.opts.OnEvent(ev)
	}
}

// StartEnumeration enumerates roots in the background and emits
// EnumerationFinished. Use Wait for the outcome.
func (e *Engine) StartEnumeration(ctx context.Context, roots []string, recursive bool) error {
	id, _, err := e.begin()
	if err != nil {
		return err
	}
	e.background(id, func() error {
		_, err := e.enumerate(ctx, id, roots, recursive)
		return err
	})
	return nil
}

// StartHashing hashes files in the background, emitting Progress,
// DuplicateFound for each group and HashingFinished. Use Wait for the
// outcome.
func (e *Engine) StartHashing(ctx context.Context, files []string) error {
	id, workers, err := e.begin()
	if err != nil {
		return err
	}
	e.background(id, func() error {
		_, err := e.findDuplicates(ctx, id, workers, files)
		return err
	})
	return nil
}

func (e *Engine) background(id uuid.UUID, fn func() error) {
	bg := &backgroundRun{done: make(chan struct{})}
	e.mu.Lock()
	e.bg = bg
	e.mu.Unlock()

	go func() {
		bg.err = fn()
		e.finish(id)
		close(bg.done)
	}()
}

// Wait blocks until the latest background run finishes and returns its
// error. A run started after Wait began does not change the result. It
// returns nil immediately if nothing was started in the background.
func (e *Engine) Wait() error {
	e.mu.Lock()
	bg := e.bg
	e.mu.Unlock()

	if bg == nil {
		return nil
	}
	<-bg.done
	return bg.err
}

// Enumerate lists roots synchronously.
func (e *Engine) Enumerate(ctx context.Context, roots []string, recursive bool) (*scanner.Result, error) {
	id, _, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer e.finish(id)
	return e.enumerate(ctx, id, roots, recursive)
}

// FindDuplicates hashes files synchronously and returns the duplicate groups.
func (e *Engine) FindDuplicates(ctx context.Context, files []string) ([]types.DuplicateGroup, error) {
	id, workers, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer e.finish(id)

	out, err := e.findDuplicates(ctx, id, workers, files)
	if err != nil {
		return nil, err
	}
	return out.groups, nil
}

// Run enumerates roots using Options.Recursive, hashes every file found and
// returns the report. An aborted run returns control.ErrAborted and no
// report.
func (e *Engine) Run(ctx context.Context, roots []string) (*Report, error) {
	id, workers, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer e.finish(id)

	start := time.Now()
	scan, err := e.enumerate(ctx, id, roots, e.opts.Recursive)
	if err != nil {
		return nil, err
	}

	out, err := e.findDuplicates(ctx, id, workers, scan.Files)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:       id,
		Algorithm:   e.opts.Algorithm,
		Roots:       roots,
		Files:       len(scan.Files),
		DirsScanned: scan.DirsScanned,
		Hashed:      out.hashed,
		BytesHashed: out.bytes,
		Groups:      out.groups,
		Errors:      append(scan.Errors, out.failed...),
		Elapsed:     time.Since(start),
	}
	e.log.Info("run complete",
		"run", id,
		"files", report.Files,
		"groups", len(report.Groups),
		"wasted", report.Wasted(),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (e *Engine) enumerate(ctx context.Context, id uuid.UUID, roots []string, recursive bool) (*scanner.Result, error) {
	sc := scanner.New(scanner.Options{
		Recursive:      recursive,
		SkipSymlinks:   e.opts.SkipSymlinks,
		MinSize:        e.opts.MinSize,
		Exclude:        e.opts.Exclude,
		DirWorkers:     e.opts.DirWorkers,
		MaxInFlight:    e.opts.MaxInFlight,
		Control:        e.ctrl,
		OnProgress: func(p types.ScanProgress) {
			e.emit(ScanProgress{RunID: id, ScanProgress: p})
		},
	})

	res, err := sc.Enumerate(ctx, roots)
	if err != nil && !errors.Is(err, control.ErrAborted) {
		return nil, err
	}

	if res.Aborted {
		e.emit(EnumerationFinished{RunID: id, Errors: res.Errors, Aborted: true})
		return res, control.ErrAborted
	}
	e.emit(EnumerationFinished{RunID: id, Files: res.Files, Errors: res.Errors})
	return res, nil
}

// hashOutcome carries the parts of a hashing run that Run reports.
type hashOutcome struct {
	groups []types.DuplicateGroup
	failed []types.ScanError
	hashed int
	bytes  int64
}

func (e *Engine) findDuplicates(ctx context.Context, id uuid.UUID, workers int, files []string) (*hashOutcome, error) {
	pipeline, err := hasher.New(hasher.Options{
		Workers:     workers,
		MaxInFlight: e.opts.MaxInFlight,
		Algorithm:   e.opts.Algorithm,
		ChunkSize:   e.opts.ChunkSize,
		Control:     e.ctrl,
		OnProgress: func(pct int) {
			e.emit(Progress{RunID: id, Percent: pct})
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := pipeline.HashAll(ctx, files)
	if err == nil && e.ctrl.Aborted() {
		err = control.ErrAborted
	}
	if err != nil {
		aborted := errors.Is(err, control.ErrAborted)
		finished := HashingFinished{RunID: id, Aborted: aborted}
		if res != nil {
			finished.Failed = res.Failed
		}
		if !aborted {
			finished.Err = err
		}
		e.emit(finished)
		return nil, err
	}

	groups := res.Index.Groups()
	for _, g := range groups {
		e.emit(DuplicateFound{RunID: id, Group: g})
	}
	res.Progress.Finish()
	e.emit(HashingFinished{RunID: id, Groups: len(groups), Failed: res.Failed})

	return &hashOutcome{
		groups: groups,
		failed: res.Failed,
		hashed: res.Hashed,
		bytes:  res.Bytes,
	}, nil
}
