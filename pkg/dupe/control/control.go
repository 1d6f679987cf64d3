// Package control provides the run state machine shared by the scan and
// hash stages: a one-way abort latch and a pause gate that workers poll
// before starting new work.
package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrAborted is returned when a run was stopped through the abort latch.
var ErrAborted = errors.New("run aborted")

// ErrBusy is returned by Begin while a run is in progress.
var ErrBusy = errors.New("run already in progress")

// State is the lifecycle state of a run.
type State int32

// Run states. Paused is tracked separately and is orthogonal to these.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Controller holds the abort latch and pause gate for one pipeline.
// It is safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state State

	aborted atomic.Bool
	abortCh chan struct{}

	paused   bool
	resumeCh chan struct{} // closed while not paused
}

// New returns an idle, unpaused controller.
func New() *Controller {
	resume := make(chan struct{})
	close(resume)
	return &Controller{
		abortCh:  make(chan struct{}),
		resumeCh: resume,
	}
}

// Begin moves the controller to Running and resets the abort latch.
func (c *Controller) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return ErrBusy
	}
	c.resetAbortLocked()
	c.state = StateRunning
	return nil
}

// Finish ends the current run and returns the terminal state.
// The pause flag is cleared so the next run starts unpaused.
func (c *Controller) Finish() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return c.state
	}
	if c.aborted.Load() {
		c.state = StateAborted
	} else {
		c.state = StateCompleted
	}
	c.setPausedLocked(false)
	return c.state
}

// State returns the current run state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Abort sets the abort latch. It stays set until the next Begin or
// ClearAbort outside a run. Paused workers are released.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.aborted.Swap(true) {
		return
	}
	close(c.abortCh)
}

// ClearAbort resets the latch. It reports false and does nothing while
// a run is in progress.
func (c *Controller) ClearAbort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return false
	}
	c.resetAbortLocked()
	return true
}

func (c *Controller) resetAbortLocked() {
	if c.aborted.Swap(false) {
		c.abortCh = make(chan struct{})
	}
}

// Aborted reports whether the abort latch is set.
func (c *Controller) Aborted() bool {
	return c.aborted.Load()
}

// Done returns a channel that is closed once the latch is set.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortCh
}

// SetPaused opens or closes the pause gate. In-flight work is never
// interrupted; the gate only holds back new units of work.
func (c *Controller) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPausedLocked(paused)
}

func (c *Controller) setPausedLocked(paused bool) {
	if paused == c.paused {
		return
	}
	c.paused = paused
	if paused {
		c.resumeCh = make(chan struct{})
	} else {
		close(c.resumeCh)
	}
}

// Paused reports whether the pause gate is closed.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Wait blocks while the controller is paused. It returns ErrAborted if the
// latch is set and the context error if ctx ends first.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		resume, abort := c.resumeCh, c.abortCh
		c.mu.Unlock()

		if c.aborted.Load() {
			return ErrAborted
		}

		select {
		case <-resume:
			if c.aborted.Load() {
				return ErrAborted
			}
			// Pause may have been set again between close and wake-up.
			if !c.Paused() {
				return nil
			}
		case <-abort:
			return ErrAborted
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AbortOnDone arranges for ctx cancellation to set the abort latch.
// The returned function detaches the hook.
func (c *Controller) AbortOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, c.Abort)
}
