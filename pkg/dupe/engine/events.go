package engine

import (
	"github.com/google/uuid"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// Event is emitted by the engine while a run progresses. The concrete types
// are ScanProgress, EnumerationFinished, Progress, DuplicateFound and
// HashingFinished.
type Event interface {
	// Run identifies the run that produced the event.
	Run() uuid.UUID

	event()
}

// ScanProgress is a throttled snapshot of the enumeration stage.
type ScanProgress struct {
	RunID uuid.UUID
	types.ScanProgress
}

// EnumerationFinished ends the enumeration stage. Files is the sorted set of
// canonical paths, or nil if the run was aborted.
type EnumerationFinished struct {
	RunID   uuid.UUID
	Files   []string
	Errors  []types.ScanError
	Aborted bool
}

// Progress reports the hashing stage in whole percent. Values within a run
// are strictly increasing and 100 is sent only after aggregation.
type Progress struct {
	RunID   uuid.UUID
	Percent int
}

// DuplicateFound reports one duplicate group. It is never sent for an
// aborted run.
type DuplicateFound struct {
	RunID uuid.UUID
	Group types.DuplicateGroup
}

// HashingFinished ends the hashing stage. Err is set when the run failed
// for a reason other than abort.
type HashingFinished struct {
	RunID   uuid.UUID
	Groups  int
	Failed  []types.ScanError
	Aborted bool
	Err     error
}

func (e ScanProgress) Run() uuid.UUID        { return e.RunID }
func (e EnumerationFinished) Run() uuid.UUID { return e.RunID }
func (e Progress) Run() uuid.UUID            { return e.RunID }
func (e DuplicateFound) Run() uuid.UUID      { return e.RunID }
func (e HashingFinished) Run() uuid.UUID     { return e.RunID }

func (ScanProgress) event()        {}
func (EnumerationFinished) event() {}
func (Progress) event()            {}
func (DuplicateFound) event()      {}
func (HashingFinished) event()     {}
