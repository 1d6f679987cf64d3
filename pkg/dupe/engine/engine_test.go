package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/hasher"
)

// recorder collects events in emission order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) percents() []int {
	var out []int
	for _, ev := range r.all() {
		if p, ok := ev.(Progress); ok {
			out = append(out, p.Percent)
		}
	}
	return out
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	// Canonicalise so expectations match what enumeration reports.
	root, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	return root
}

func newEngine(t *testing.T, rec *recorder, opts Options) *Engine {
	t.Helper()
	if rec != nil {
		opts.OnEvent = rec.add
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{Algorithm: "md4"})
	require.ErrorIs(t, err, hasher.ErrUnknownAlgorithm)

	_, err = New(Options{MinSize: -1})
	require.Error(t, err)

	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, control.StateIdle, e.State())
	assert.Equal(t, 8, e.Concurrency())
}

func TestRunFindsDuplicates(t *testing.T) {
	root := writeTree(t, map[string]string{
		"A/x.txt": "hi",
		"A/y.txt": "hi",
		"B/z.txt": "bye",
	})

	rec := &recorder{}
	e := newEngine(t, rec, Options{Recursive: true, Concurrency: 3})

	report, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files)
	assert.Equal(t, 3, report.Hashed)
	assert.Equal(t, hasher.SHA1, report.Algorithm)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "A", "x.txt"),
		filepath.Join(root, "A", "y.txt"),
	}, report.Groups[0].Paths)
	assert.Equal(t, int64(2), report.Wasted())

	events := rec.all()
	require.NotEmpty(t, events)

	var (
		enumerated bool
		found      int
		finished   *HashingFinished
	)
	for i, ev := range events {
		assert.Equal(t, report.RunID, ev.Run(), "event %d", i)
		switch ev := ev.(type) {
		case EnumerationFinished:
			enumerated = true
			assert.Len(t, ev.Files, 3)
			assert.False(t, ev.Aborted)
		case DuplicateFound:
			assert.True(t, enumerated)
			found++
		case HashingFinished:
			finished = &ev
			assert.Equal(t, len(events)-1, i, "HashingFinished is last")
		}
	}
	assert.Equal(t, 1, found)
	require.NotNil(t, finished)
	assert.Equal(t, 1, finished.Groups)
	assert.False(t, finished.Aborted)

	assert.Equal(t, []int{33, 66, 99, 100}, rec.percents())
	assert.Equal(t, control.StateCompleted, e.State())
}

func TestRunEmptyRoot(t *testing.T) {
	root := writeTree(t, nil)

	rec := &recorder{}
	e := newEngine(t, rec, Options{Recursive: true})

	report, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, report.Groups)
	assert.Equal(t, []int{100}, rec.percents())

	events := rec.all()
	last, ok := events[len(events)-1].(HashingFinished)
	require.True(t, ok)
	assert.Zero(t, last.Groups)
}

func TestRunNonRecursive(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a":     "same",
		"b":     "same",
		"sub/c": "same",
	})

	e := newEngine(t, nil, Options{Recursive: false})
	report, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	assert.Len(t, report.Groups[0].Paths, 2)
}

func TestProgressIsMonotonic(t *testing.T) {
	files := make(map[string]string)
	for i := range 250 {
		files[fmt.Sprintf("d%d/f%03d", i%7, i)] = fmt.Sprintf("content-%d", i%40)
	}
	root := writeTree(t, files)

	rec := &recorder{}
	e := newEngine(t, rec, Options{Recursive: true, Concurrency: 16, MaxInFlight: 8})

	report, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Len(t, report.Groups, 40)

	percents := rec.percents()
	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.Greater(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
	assert.LessOrEqual(t, percents[len(percents)-2], 99)
}

func TestAbortSuppressesResults(t *testing.T) {
	files := make(map[string]string)
	for i := range 40 {
		files[fmt.Sprintf("f%02d", i)] = strings.Repeat("z", 512)
	}
	root := writeTree(t, files)

	rec := &recorder{}
	var e *Engine
	e = newEngine(t, nil, Options{
		Recursive:   true,
		Concurrency: 1,
		MaxInFlight: 1,
		ChunkSize:   16,
		OnEvent: func(ev Event) {
			rec.add(ev)
			if _, ok := ev.(Progress); ok {
				e.SetAbort()
			}
		},
	})

	report, err := e.Run(context.Background(), []string{root})
	require.ErrorIs(t, err, control.ErrAborted)
	assert.Nil(t, report)
	assert.Equal(t, control.StateAborted, e.State())

	var finished bool
	for _, ev := range rec.all() {
		switch ev := ev.(type) {
		case DuplicateFound:
			t.Fatalf("duplicate reported after abort: %v", ev.Group.Paths)
		case HashingFinished:
			finished = true
			assert.True(t, ev.Aborted)
			assert.NoError(t, ev.Err)
		}
	}
	assert.True(t, finished)
	assert.NotContains(t, rec.percents(), 100)

	// The latch stays set until cleared or a new run begins.
	assert.True(t, e.Aborted())
	assert.True(t, e.ClearAbort())
	assert.False(t, e.Aborted())
}

func TestAbortBeforeRunIsReset(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1", "b": "1"})

	e := newEngine(t, nil, Options{Recursive: true})
	e.SetAbort()

	report, err := e.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Len(t, report.Groups, 1)
}

func TestContextCancel(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1", "b": "1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(t, nil, Options{Recursive: true})
	_, err := e.Run(ctx, []string{root})
	require.ErrorIs(t, err, control.ErrAborted)
}

func TestInvalidRoot(t *testing.T) {
	e := newEngine(t, nil, Options{})
	_, err := e.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, control.ErrAborted)
}

func TestStartAndWait(t *testing.T) {
	root := writeTree(t, map[string]string{
		"one/a": "dup",
		"two/b": "dup",
		"c":     "unique",
	})

	rec := &recorder{}
	e := newEngine(t, rec, Options{})
	ctx := context.Background()

	require.NoError(t, e.StartEnumeration(ctx, []string{root}, true))
	require.NoError(t, e.Wait())

	var files []string
	for _, ev := range rec.all() {
		if ef, ok := ev.(EnumerationFinished); ok {
			files = ef.Files
		}
	}
	require.Len(t, files, 3)

	require.NoError(t, e.StartHashing(ctx, files))
	require.NoError(t, e.Wait())

	var groups int
	for _, ev := range rec.all() {
		if df, ok := ev.(DuplicateFound); ok {
			groups++
			assert.Equal(t, []string{
				filepath.Join(root, "one", "a"),
				filepath.Join(root, "two", "b"),
			}, df.Group.Paths)
		}
	}
	assert.Equal(t, 1, groups)
}

func TestBusy(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1"})

	e := newEngine(t, nil, Options{})
	e.SetPause(true)
	require.True(t, e.Paused())

	ctx := context.Background()
	require.NoError(t, e.StartEnumeration(ctx, []string{root}, true))
	assert.Equal(t, control.StateRunning, e.State())

	assert.ErrorIs(t, e.StartHashing(ctx, []string{root}), ErrBusy)
	_, err := e.FindDuplicates(ctx, nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.False(t, e.ClearAbort(), "latch cannot be cleared mid-run")

	e.SetPause(false)
	require.NoError(t, e.Wait())
	assert.Equal(t, control.StateCompleted, e.State())
}

// TestWaitKeepsItsRunError checks that a caller blocked in Wait gets the
// error of the run it waited on even when another run starts as soon as the
// first one finishes.
func TestWaitKeepsItsRunError(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "1"})
	ctx := context.Background()

	for range 10 {
		e := newEngine(t, nil, Options{})
		e.SetPause(true)
		require.NoError(t, e.StartEnumeration(ctx, []string{root}, true))

		waiting := make(chan struct{})
		got := make(chan error, 1)
		go func() {
			close(waiting)
			got <- e.Wait()
		}()
		<-waiting
		time.Sleep(20 * time.Millisecond)

		e.SetAbort()
		for {
			err := e.StartHashing(ctx, nil)
			if err == nil {
				break
			}
			require.ErrorIs(t, err, ErrBusy)
			runtime.Gosched()
		}

		require.ErrorIs(t, <-got, control.ErrAborted)
		require.NoError(t, e.Wait())
	}
}

func TestFindDuplicates(t *testing.T) {
	root := writeTree(t, map[string]string{"a": "x", "b": "x", "c": "y"})
	files := []string{
		filepath.Join(root, "c"),
		filepath.Join(root, "b"),
		filepath.Join(root, "a"),
	}

	e := newEngine(t, nil, Options{Algorithm: hasher.XXHash})
	groups, err := e.FindDuplicates(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{files[2], files[1]}, groups[0].Paths)
}

func TestSetConcurrency(t *testing.T) {
	e := newEngine(t, nil, Options{})

	assert.Equal(t, 1, e.SetConcurrency(0))
	assert.Equal(t, 64, e.SetConcurrency(1000))
	assert.Equal(t, 12, e.SetConcurrency(12))
	assert.Equal(t, 12, e.Concurrency())
}

func TestWaitWithoutRun(t *testing.T) {
	e := newEngine(t, nil, Options{})
	assert.NoError(t, e.Wait())
}
