package main

import (
	"context"
	"sync/atomic"
	"time"
)

// minWatchdogTick bounds how often the watchdog polls.
const minWatchdogTick = 10 * time.Millisecond

// watchdog aborts a run that has reported nothing for longer than timeout.
// Time spent paused does not count.
type watchdog struct {
	timeout time.Duration
	abort   func()
	paused  func() bool

	last  atomic.Int64
	fired atomic.Bool
}

func newWatchdog(timeout time.Duration, abort func(), paused func() bool) *watchdog {
	w := &watchdog{timeout: timeout, abort: abort, paused: paused}
	w.Touch()
	return w
}

// Touch records activity.
func (w *watchdog) Touch() {
	w.last.Store(time.Now().UnixNano())
}

// Fired reports whether the watchdog aborted the run.
func (w *watchdog) Fired() bool {
	return w.fired.Load()
}

// Run polls until ctx ends or the watchdog fires.
func (w *watchdog) Run(ctx context.Context) {
	if w.timeout <= 0 {
		return
	}
	ticker := time.NewTicker(max(w.timeout/4, minWatchdogTick))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if w.paused != nil && w.paused() {
				w.Touch()
				continue
			}
			idle := now.Sub(time.Unix(0, w.last.Load()))
			if idle >= w.timeout {
				w.fired.Store(true)
				w.abort()
				return
			}
		}
	}
}
