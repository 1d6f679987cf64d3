// Package hasher streams files through a content digest on a bounded worker
// pool and merges the records into a digest index.
//
// Workers own their file handle, buffer and accumulator. Records are merged
// one at a time on the stage controller goroutine, which also drives
// progress, so the index needs no locking.
package hasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/index"
	"github.com/jamesainslie/dupe/pkg/dupe/logging"
	"github.com/jamesainslie/dupe/pkg/dupe/progress"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
	"github.com/jamesainslie/dupe/pkg/dupe/workpool"
)

// DefaultChunkSize is the read size used while hashing.
const DefaultChunkSize = types.MiB

// Outcome classifies one hashing attempt.
type Outcome int

// Hashing outcomes. Only OutcomeOK records reach the index.
const (
	OutcomeOK Outcome = iota
	OutcomeFailed
	OutcomeAborted
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Options configures the pipeline.
type Options struct {
	// Workers is the number of hashing goroutines, clamped to [1,64].
	Workers int

	// MaxInFlight bounds files dispatched but not yet merged.
	MaxInFlight int

	// Algorithm selects the digest. Empty uses DefaultAlgorithm.
	Algorithm Algorithm

	// ChunkSize is the read size. The abort latch is polled between chunks.
	ChunkSize int64

	// Control supplies the abort latch and pause gate. Nil uses a private
	// controller per HashAll call, stopped only by context cancellation.
	Control *control.Controller

	// OnProgress receives whole percentages from the merging goroutine.
	// 100 is only emitted once the caller calls Result.Progress.Finish.
	OnProgress func(percent int)
}

// Result is the outcome of one HashAll call.
type Result struct {
	// Index holds every successfully hashed file.
	Index *index.DigestIndex

	// Hashed is the number of files that reached the index.
	Hashed int

	// Failed lists files that could not be opened or read.
	Failed []types.ScanError

	// Bytes is the number of bytes read by successful hashes.
	Bytes int64

	// Elapsed is the wall time of the run.
	Elapsed time.Duration

	// Aborted is set when the run stopped early. Index is then partial.
	Aborted bool

	// Progress is the reporter driven by the run. The caller finishes it
	// after aggregation.
	Progress *progress.Reporter

	// Stats describes the hashing stage.
	Stats workpool.Stats
}

// Pipeline hashes file sets.
type Pipeline struct {
	opts Options
	log  *logging.Logger
	bufs sync.Pool
}

// New validates opts and returns a pipeline.
func New(opts Options) (*Pipeline, error) {
	algo, err := ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	opts.Algorithm = algo

	if opts.Workers < 1 {
		opts.Workers = config.DefaultHashWorkers
	}
	opts.Workers = workpool.ClampWorkers(opts.Workers)
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = config.DefaultMaxInFlight
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	p := &Pipeline{opts: opts, log: logging.Get("hasher")}
	p.bufs.New = func() any {
		buf := make([]byte, opts.ChunkSize)
		return &buf
	}
	return p, nil
}

// Algorithm returns the configured digest.
func (p *Pipeline) Algorithm() Algorithm {
	return p.opts.Algorithm
}

// record is what a worker hands back to the controller.
type record struct {
	rec     types.HashRecord
	outcome Outcome
	err     error
}

// HashAll hashes every path and merges the records into a fresh index.
//
// Per-file failures are recorded in Result.Failed and do not fail the run.
// A digest seen with two different sizes stops the run with
// index.ErrInconsistentDigest. An aborted run returns control.ErrAborted and
// a Result with Aborted set.
func (p *Pipeline) HashAll(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()

	ctrl := p.opts.Control
	if ctrl == nil {
		ctrl = control.New()
	}

	res := &Result{
		Index:    index.New(),
		Progress: progress.New(len(paths), p.opts.OnProgress),
	}

	p.log.Info("hashing started",
		"files", len(paths),
		"algorithm", p.opts.Algorithm,
		"workers", p.opts.Workers,
	)

	stage := workpool.Stage[string, record]{
		Workers:     p.opts.Workers,
		MaxInFlight: p.opts.MaxInFlight,
		Control:     ctrl,
		Process: func(ctx context.Context, path string) record {
			return p.hash(ctx, ctrl, path)
		},
	}

	stats, err := stage.Run(ctx, paths, func(r record) ([]string, error) {
		if ctrl.Aborted() {
			res.Progress.Suppress()
		}
		res.Progress.Step()

		switch r.outcome {
		case OutcomeOK:
			if err := res.Index.Insert(r.rec); err != nil {
				return nil, err
			}
			res.Hashed++
			res.Bytes += r.rec.Size
		case OutcomeFailed:
			p.log.Debug("hash failed", "path", r.rec.Path, "error", r.err)
			res.Failed = append(res.Failed, types.ScanError{Path: r.rec.Path, Error: r.err.Error()})
		case OutcomeAborted:
		}
		return nil, nil
	})

	res.Stats = stats
	res.Elapsed = time.Since(start)

	if err != nil {
		if errors.Is(err, control.ErrAborted) {
			res.Aborted = true
			res.Progress.Suppress()
			p.log.Info("hashing aborted", "hashed", res.Hashed, "files", len(paths))
		} else {
			p.log.Error("hashing failed", "error", err)
		}
		return res, err
	}

	p.log.Info("hashing finished",
		"hashed", res.Hashed,
		"failed", len(res.Failed),
		"bytes", res.Bytes,
		"elapsed", res.Elapsed,
		"peak_active", stats.PeakActive,
	)
	return res, nil
}

// HashFile hashes a single file outside a run.
func (p *Pipeline) HashFile(ctx context.Context, path string) (types.HashRecord, error) {
	r := p.hash(ctx, control.New(), path)
	switch r.outcome {
	case OutcomeOK:
		return r.rec, nil
	case OutcomeAborted:
		return types.HashRecord{}, control.ErrAborted
	default:
		return types.HashRecord{}, r.err
	}
}

// hash streams one file. It runs on a worker goroutine.
func (p *Pipeline) hash(ctx context.Context, ctrl *control.Controller, path string) record {
	out := record{rec: types.HashRecord{Path: path}}

	stopped := func() bool {
		return ctrl.Aborted() || ctx.Err() != nil
	}
	if stopped() {
		out.outcome = OutcomeAborted
		return out
	}

	f, err := os.Open(path)
	if err != nil {
		out.outcome = OutcomeFailed
		out.err = err
		return out
	}
	defer func() { _ = f.Close() }()

	h, err := p.opts.Algorithm.New()
	if err != nil {
		out.outcome = OutcomeFailed
		out.err = err
		return out
	}

	bufp, _ := p.bufs.Get().(*[]byte)
	defer p.bufs.Put(bufp)
	buf := *bufp

	var size int64
	for {
		if stopped() {
			out.outcome = OutcomeAborted
			return out
		}

		n, err := f.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
			size += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			out.outcome = OutcomeFailed
			out.err = fmt.Errorf("reading %s: %w", path, err)
			return out
		}
	}

	out.rec.Digest = h.Sum(nil)
	out.rec.Size = size
	out.outcome = OutcomeOK
	return out
}
