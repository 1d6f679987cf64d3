// Package workpool drives one bounded pipeline stage: a fixed set of worker
// goroutines executes short tasks while a single controller loop owns the
// pending queue, the in-flight counter and all result merging.
//
// Workers report each result over an unbuffered channel, so a worker cannot
// pick up new work until the controller has taken its result. The controller
// only dispatches while fewer than MaxInFlight tasks are outstanding, and the
// task channel is sized to that bound, so dispatch never blocks and the
// number of outstanding tasks never exceeds the bound.
package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
)

const (
	// DefaultMaxInFlight is the default bound on outstanding tasks per stage.
	DefaultMaxInFlight = 128

	// MinWorkers and MaxWorkers bound the worker goroutine count.
	MinWorkers = 1
	MaxWorkers = 64
)

// ErrNoProcess is returned when a Stage has no Process function.
var ErrNoProcess = errors.New("workpool: stage has no process function")

// ClampWorkers limits n to [MinWorkers, MaxWorkers].
func ClampWorkers(n int) int {
	return min(max(n, MinWorkers), MaxWorkers)
}

// Stats describes one stage run.
type Stats struct {
	// Dispatched is the number of tasks handed to workers.
	Dispatched int64

	// Completed is the number of results merged by the controller.
	Completed int64

	// Pending is the number of queued tasks that were never dispatched,
	// which is non-zero only after an abort or fatal error.
	Pending int

	// PeakInFlight is the highest number of outstanding tasks observed.
	PeakInFlight int

	// PeakActive is the highest number of tasks executing at once.
	PeakActive int
}

// Stage runs tasks of type T producing results of type R.
type Stage[T, R any] struct {
	// Workers is the number of worker goroutines, clamped to [1,64].
	Workers int

	// MaxInFlight bounds dispatched-but-unmerged tasks.
	// Zero or negative uses DefaultMaxInFlight.
	MaxInFlight int

	// Control provides the abort latch and pause gate. Nil uses a private
	// controller that can only be stopped through ctx.
	Control *control.Controller

	// Process executes one task on a worker goroutine. It must return
	// promptly once the abort latch is set.
	Process func(ctx context.Context, task T) R
}

// Run seeds the queue and drives the stage until the queue is empty and no
// task is outstanding. handle is called on the controller goroutine, one
// result at a time, and may return follow-up tasks. A non-nil error from
// handle stops dispatch; Run drains outstanding tasks and returns it.
// If the abort latch was set, Run returns control.ErrAborted after draining.
func (s *Stage[T, R]) Run(ctx context.Context, seed []T, handle func(R) ([]T, error)) (Stats, error) {
	if s.Process == nil {
		return Stats{}, ErrNoProcess
	}

	ctrl := s.Control
	if ctrl == nil {
		ctrl = control.New()
	}
	stopHook := ctrl.AbortOnDone(ctx)
	defer stopHook()

	workers := ClampWorkers(s.Workers)
	limit := s.MaxInFlight
	if limit < 1 {
		limit = DefaultMaxInFlight
	}

	tasks := make(chan T, limit)
	results := make(chan R)

	var active, peakActive atomic.Int64
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				// Wait only fails on abort or ctx end; Process sees the
				// same latch and returns straight away in that case.
				_ = ctrl.Wait(ctx)

				n := active.Add(1)
				for {
					peak := peakActive.Load()
					if n <= peak || peakActive.CompareAndSwap(peak, n) {
						break
					}
				}
				r := s.Process(ctx, task)
				active.Add(-1)

				results <- r
			}
		}()
	}
	defer func() {
		close(tasks)
		wg.Wait()
	}()

	// ctx cancellation reaches the latch through AfterFunc asynchronously,
	// so it is checked directly as well.
	stopped := func() bool {
		if ctx.Err() != nil {
			ctrl.Abort()
		}
		return ctrl.Aborted()
	}

	var (
		stats    Stats
		pending  = newQueue(seed)
		inFlight int
		fatal    error
	)

	dispatch := func() {
		for pending.Len() > 0 && inFlight < limit && fatal == nil && !stopped() {
			tasks <- pending.Pop()
			inFlight++
			stats.Dispatched++
			stats.PeakInFlight = max(stats.PeakInFlight, inFlight)
		}
	}

	dispatch()
	for inFlight > 0 {
		r := <-results
		stats.Completed++

		more, err := handle(r)
		if err != nil && fatal == nil {
			fatal = err
		}
		if fatal == nil && !stopped() {
			pending.Push(more...)
		}

		inFlight--
		dispatch()
	}

	stats.Pending = pending.Len()
	stats.PeakActive = int(peakActive.Load())

	if fatal != nil {
		return stats, fatal
	}
	if stopped() {
		return stats, control.ErrAborted
	}
	return stats, nil
}

// queue is a FIFO owned by the controller goroutine.
type queue[T any] struct {
	items []T
	head  int
}

func newQueue[T any](seed []T) *queue[T] {
	q := &queue[T]{items: make([]T, 0, len(seed))}
	q.Push(seed...)
	return q
}

func (q *queue[T]) Len() int {
	return len(q.items) - q.head
}

func (q *queue[T]) Push(items ...T) {
	q.items = append(q.items, items...)
}

func (q *queue[T]) Pop() T {
	item := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item
}
