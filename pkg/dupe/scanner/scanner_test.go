package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// TestDefaultOptions verifies default options are set correctly.
func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Recursive {
		t.Error("expected Recursive=true")
	}
	if opts.SkipSymlinks {
		t.Error("expected SkipSymlinks=false")
	}
	if opts.DirWorkers != 4 {
		t.Errorf("expected DirWorkers=4, got %d", opts.DirWorkers)
	}
	if opts.MaxInFlight != 128 {
		t.Errorf("expected MaxInFlight=128, got %d", opts.MaxInFlight)
	}
}

// TestOptionsValidate verifies validation sets defaults for invalid values.
func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name         string
		opts         Options
		wantDir      int
		wantInFlight int
	}{
		{
			name:         "empty options",
			opts:         Options{},
			wantDir:      4,
			wantInFlight: 128,
		},
		{
			name:         "negative values",
			opts:         Options{DirWorkers: -1, MaxInFlight: -5, MinSize: -1},
			wantDir:      4,
			wantInFlight: 128,
		},
		{
			name:         "workers clamped",
			opts:         Options{DirWorkers: 500, MaxInFlight: 8},
			wantDir:      64,
			wantInFlight: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.opts.DirWorkers != tt.wantDir {
				t.Errorf("DirWorkers: got %d, want %d", tt.opts.DirWorkers, tt.wantDir)
			}
			if tt.opts.MaxInFlight != tt.wantInFlight {
				t.Errorf("MaxInFlight: got %d, want %d", tt.opts.MaxInFlight, tt.wantInFlight)
			}
			if tt.opts.MinSize < 0 {
				t.Errorf("MinSize: got %d, want >= 0", tt.opts.MinSize)
			}
		})
	}
}

// canonicalTempDir returns a temp dir with symlinks resolved, matching the
// paths Enumerate reports.
func canonicalTempDir(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// createTestDir creates:
//
//	root/
//	  A/x.txt  "hi"
//	  A/y.txt  "hi"
//	  B/z.txt  "bye"
func createTestDir(t *testing.T) string {
	t.Helper()
	root := canonicalTempDir(t)
	writeFile(t, filepath.Join(root, "A", "x.txt"), "hi")
	writeFile(t, filepath.Join(root, "A", "y.txt"), "hi")
	writeFile(t, filepath.Join(root, "B", "z.txt"), "bye")
	return root
}

// createWideTree creates depth levels of fanout subdirectories, each holding
// one file.
func createWideTree(t *testing.T, root string, depth, fanout int) {
	t.Helper()
	var build func(dir string, level int)
	build = func(dir string, level int) {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("f%d.dat", level)), dir)
		if level == depth {
			return
		}
		for i := range fanout {
			build(filepath.Join(dir, fmt.Sprintf("d%d", i)), level+1)
		}
	}
	build(root, 0)
}

func enumerate(t *testing.T, opts Options, roots ...string) *Result {
	t.Helper()
	result, err := New(opts).Enumerate(context.Background(), roots)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	return result
}

// TestEnumerateBasic verifies the files of a small tree are each listed once.
func TestEnumerateBasic(t *testing.T) {
	root := createTestDir(t)

	result := enumerate(t, Options{Recursive: true, DirWorkers: 2}, root)

	want := []string{
		filepath.Join(root, "A", "x.txt"),
		filepath.Join(root, "A", "y.txt"),
		filepath.Join(root, "B", "z.txt"),
	}
	if !slices.Equal(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	if result.DirsScanned != 3 {
		t.Errorf("DirsScanned = %d, want 3", result.DirsScanned)
	}
	if result.Bytes != 7 {
		t.Errorf("Bytes = %d, want 7", result.Bytes)
	}
	if result.Aborted {
		t.Error("Aborted = true, want false")
	}
}

// TestEnumerateMatchesFastwalk checks the file set against an independent walker.
func TestEnumerateMatchesFastwalk(t *testing.T) {
	root := canonicalTempDir(t)
	createWideTree(t, root, 3, 4)

	var (
		mu   sync.Mutex
		want []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			mu.Lock()
			want = append(want, path)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("fastwalk failed: %v", err)
	}
	slices.Sort(want)

	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			result := enumerate(t, Options{Recursive: true, DirWorkers: workers, MaxInFlight: 5}, root)
			if !slices.Equal(result.Files, want) {
				t.Errorf("got %d files, fastwalk found %d", len(result.Files), len(want))
			}
		})
	}
}

// TestEnumerateBoundsInFlight verifies the listing stage never exceeds its bound.
func TestEnumerateBoundsInFlight(t *testing.T) {
	root := canonicalTempDir(t)
	createWideTree(t, root, 2, 12)

	result := enumerate(t, Options{Recursive: true, DirWorkers: 8, MaxInFlight: 3}, root)

	if result.Stats.PeakInFlight > 3 {
		t.Errorf("PeakInFlight = %d, want <= 3", result.Stats.PeakInFlight)
	}
	if result.Stats.PeakActive > 3 {
		t.Errorf("PeakActive = %d, want <= 3", result.Stats.PeakActive)
	}
	if want := int64(1 + 12 + 144); result.DirsScanned != want {
		t.Errorf("DirsScanned = %d, want %d", result.DirsScanned, want)
	}
}

// TestEnumerateNonRecursive verifies only immediate entries are listed.
func TestEnumerateNonRecursive(t *testing.T) {
	root := createTestDir(t)
	writeFile(t, filepath.Join(root, "top.txt"), "top")

	result := enumerate(t, Options{Recursive: false}, root)

	want := []string{filepath.Join(root, "top.txt")}
	if !slices.Equal(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	if result.DirsScanned != 1 {
		t.Errorf("DirsScanned = %d, want 1", result.DirsScanned)
	}
}

// TestEnumerateOverlappingRoots verifies files reachable from several roots
// are reported once.
func TestEnumerateOverlappingRoots(t *testing.T) {
	root := createTestDir(t)

	result := enumerate(t, Options{Recursive: true, DirWorkers: 4},
		root, filepath.Join(root, "A"), root+string(filepath.Separator)+".")

	if len(result.Files) != 3 {
		t.Errorf("expected 3 files, got %d: %v", len(result.Files), result.Files)
	}
	if result.DirsScanned != 3 {
		t.Errorf("DirsScanned = %d, want 3", result.DirsScanned)
	}
}

// TestEnumerateWithExclusions verifies prefix and glob exclusions.
func TestEnumerateWithExclusions(t *testing.T) {
	root := createTestDir(t)
	writeFile(t, filepath.Join(root, "B", "skip.tmp"), "tmp")

	result := enumerate(t, Options{
		Recursive: true,
		Exclude:   []string{filepath.Join(root, "A"), "*.tmp"},
	}, root)

	want := []string{filepath.Join(root, "B", "z.txt")}
	if !slices.Equal(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	if result.DirsScanned != 2 {
		t.Errorf("excluded directory was listed: DirsScanned = %d, want 2", result.DirsScanned)
	}
}

// TestEnumerateMinSize verifies small files are dropped.
func TestEnumerateMinSize(t *testing.T) {
	root := createTestDir(t)

	result := enumerate(t, Options{Recursive: true, MinSize: 3}, root)

	want := []string{filepath.Join(root, "B", "z.txt")}
	if !slices.Equal(result.Files, want) {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
}

// TestEnumerateSymlinks verifies links are resolved to their canonical target
// by default, including directory cycles, and dropped when skipped.
func TestEnumerateSymlinks(t *testing.T) {
	root := createTestDir(t)
	target := filepath.Join(root, "A", "x.txt")
	if err := os.Symlink(target, filepath.Join(root, "B", "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "B", "loop")); err != nil {
		t.Fatalf("creating loop link: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")); err != nil {
		t.Fatalf("creating dangling link: %v", err)
	}

	t.Run("skipped", func(t *testing.T) {
		result := enumerate(t, Options{Recursive: true, SkipSymlinks: true}, root)
		if len(result.Files) != 3 {
			t.Errorf("expected 3 files, got %v", result.Files)
		}
	})

	t.Run("followed", func(t *testing.T) {
		result := enumerate(t, Options{Recursive: true}, root)
		if len(result.Files) != 3 {
			t.Errorf("expected links to collapse onto 3 files, got %v", result.Files)
		}
		if result.DirsScanned != 3 {
			t.Errorf("DirsScanned = %d, want 3 (cycle listed once)", result.DirsScanned)
		}
	})
}

// TestEnumerateSymlinkOutsideRoot verifies a file reachable only through a
// link is enumerated once, under its canonical path, with default options.
func TestEnumerateSymlinkOutsideRoot(t *testing.T) {
	root := canonicalTempDir(t)
	elsewhere := canonicalTempDir(t)
	target := filepath.Join(elsewhere, "real")
	writeFile(t, target, "content")
	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(root, "again")); err != nil {
		t.Fatalf("creating second link: %v", err)
	}

	for name, opts := range map[string]Options{
		"zero options":    {Recursive: true},
		"default options": DefaultOptions(),
	} {
		t.Run(name, func(t *testing.T) {
			result := enumerate(t, opts, root)
			if !slices.Equal(result.Files, []string{target}) {
				t.Errorf("Files = %v, want [%s]", result.Files, target)
			}
		})
	}

	result := enumerate(t, Options{Recursive: true, SkipSymlinks: true}, root)
	if len(result.Files) != 0 {
		t.Errorf("Files = %v, want none with SkipSymlinks", result.Files)
	}
}

// TestEnumerateFileRoot verifies a root naming a file is included directly.
func TestEnumerateFileRoot(t *testing.T) {
	root := createTestDir(t)
	file := filepath.Join(root, "B", "z.txt")

	result := enumerate(t, Options{Recursive: true}, file)

	if !slices.Equal(result.Files, []string{file}) {
		t.Errorf("Files = %v, want [%s]", result.Files, file)
	}
	if result.DirsScanned != 0 {
		t.Errorf("DirsScanned = %d, want 0", result.DirsScanned)
	}
}

// TestEnumerateExcludedRoots verifies Exclude applies to roots as well as to
// the entries below them.
func TestEnumerateExcludedRoots(t *testing.T) {
	root := canonicalTempDir(t)
	logFile := filepath.Join(root, "file.log")
	writeFile(t, logFile, "log")
	skipDir := filepath.Join(root, "skip.log")
	writeFile(t, filepath.Join(skipDir, "inner.txt"), "inner")
	keep := filepath.Join(root, "keep.txt")
	writeFile(t, keep, "keep")

	opts := Options{Recursive: true, Exclude: []string{"*.log"}}

	result := enumerate(t, opts, logFile, skipDir)
	if len(result.Files) != 0 {
		t.Errorf("Files = %v, want none for excluded roots", result.Files)
	}
	if result.DirsScanned != 0 {
		t.Errorf("DirsScanned = %d, want 0", result.DirsScanned)
	}

	result = enumerate(t, opts, logFile, keep)
	if !slices.Equal(result.Files, []string{keep}) {
		t.Errorf("Files = %v, want [%s]", result.Files, keep)
	}
}

// TestEnumerateNonExistentRoot verifies a missing root is a startup error.
func TestEnumerateNonExistentRoot(t *testing.T) {
	_, err := New(Options{}).Enumerate(context.Background(), []string{"/nonexistent/path/that/does/not/exist"})
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("expected ErrInvalidRoot, got %v", err)
	}
}

// TestEnumeratePermissionErrors verifies unreadable directories are recorded
// and treated as empty.
func TestEnumeratePermissionErrors(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("skipping permission test as root")
	}

	root := createTestDir(t)
	noReadDir := filepath.Join(root, "noread")
	writeFile(t, filepath.Join(noReadDir, "hidden.txt"), "hi")
	if err := os.Chmod(noReadDir, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer func() { _ = os.Chmod(noReadDir, 0o755) }()

	result := enumerate(t, Options{Recursive: true}, root)

	if len(result.Errors) != 1 || result.Errors[0].Path != noReadDir {
		t.Errorf("expected one error for %s, got %v", noReadDir, result.Errors)
	}
	if len(result.Files) != 3 {
		t.Errorf("expected 3 readable files, got %d", len(result.Files))
	}
}

// TestEnumerateEmptyDirectory verifies an empty root yields nothing.
func TestEnumerateEmptyDirectory(t *testing.T) {
	root := canonicalTempDir(t)

	result := enumerate(t, Options{Recursive: true}, root)

	if len(result.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(result.Files))
	}
	if result.DirsScanned != 1 {
		t.Errorf("expected 1 dir scanned, got %d", result.DirsScanned)
	}
}

// TestEnumerateNoRoots verifies an empty root list completes immediately.
func TestEnumerateNoRoots(t *testing.T) {
	result := enumerate(t, Options{Recursive: true})
	if len(result.Files) != 0 || result.DirsScanned != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

// TestEnumerateContextCancellation verifies a cancelled context aborts the run.
func TestEnumerateContextCancellation(t *testing.T) {
	root := canonicalTempDir(t)
	createWideTree(t, root, 2, 6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(Options{Recursive: true}).Enumerate(ctx, []string{root})
	if !errors.Is(err, control.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if !result.Aborted {
		t.Error("expected Aborted=true")
	}
}

// TestEnumerateAbortStopsDispatch verifies the abort latch stops the frontier
// from being refilled while the in-flight listing is still merged.
func TestEnumerateAbortStopsDispatch(t *testing.T) {
	root := canonicalTempDir(t)
	createWideTree(t, root, 3, 5)

	ctrl := control.New()
	if err := ctrl.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	// The first progress report follows the first merged listing.
	opts := Options{
		Recursive:   true,
		DirWorkers:  1,
		MaxInFlight: 1,
		Control:     ctrl,
		OnProgress:  func(types.ScanProgress) { ctrl.Abort() },
	}

	result, err := New(opts).Enumerate(context.Background(), []string{root})
	if !errors.Is(err, control.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if !result.Aborted {
		t.Error("expected Aborted=true")
	}
	if result.DirsScanned != 1 {
		t.Errorf("DirsScanned = %d, want 1", result.DirsScanned)
	}
	if result.Stats.Dispatched != 1 || result.Stats.Completed != 1 {
		t.Errorf("unexpected stage stats: %+v", result.Stats)
	}
}

// TestEnumeratePauseHoldsListing verifies a paused controller holds workers.
func TestEnumeratePauseHoldsListing(t *testing.T) {
	root := createTestDir(t)

	ctrl := control.New()
	if err := ctrl.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ctrl.SetPaused(true)

	done := make(chan *Result, 1)
	go func() {
		result, _ := New(Options{Recursive: true, Control: ctrl}).Enumerate(context.Background(), []string{root})
		done <- result
	}()

	select {
	case <-done:
		t.Fatal("enumeration finished while paused")
	case <-time.After(50 * time.Millisecond):
	}

	ctrl.SetPaused(false)
	select {
	case result := <-done:
		if len(result.Files) != 3 {
			t.Errorf("expected 3 files after resume, got %d", len(result.Files))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("enumeration did not finish after resume")
	}
}

// TestEnumerateProgress verifies a final progress report matches the result.
func TestEnumerateProgress(t *testing.T) {
	root := createTestDir(t)

	var last types.ScanProgress
	calls := 0
	result := enumerate(t, Options{
		Recursive: true,
		OnProgress: func(p types.ScanProgress) {
			calls++
			last = p
		},
	}, root)

	if calls == 0 {
		t.Fatal("OnProgress never called")
	}
	if last.DirsScanned != result.DirsScanned || last.FilesFound != int64(len(result.Files)) {
		t.Errorf("final progress %+v does not match result", last)
	}
	if last.BytesFound != result.Bytes {
		t.Errorf("BytesFound = %d, want %d", last.BytesFound, result.Bytes)
	}
}

// TestIsExcluded verifies exclusion pattern matching.
func TestIsExcluded(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{name: "exact match", patterns: []string{"/proc"}, path: "/proc", want: true},
		{name: "prefix match", patterns: []string{"/proc"}, path: "/proc/1/fd", want: true},
		{name: "sibling with shared prefix", patterns: []string{"/proc"}, path: "/processes", want: false},
		{name: "no match", patterns: []string{"/proc"}, path: "/home/user", want: false},
		{name: "glob match", patterns: []string{"*.log"}, path: "/var/log/app.log", want: true},
		{name: "glob no match", patterns: []string{"*.log"}, path: "/var/log/app.txt", want: false},
		{name: "base name", patterns: []string{"node_modules"}, path: "/src/app/node_modules", want: true},
		{name: "multiple patterns", patterns: []string{"/proc", "/sys", "*.tmp"}, path: "/sys/kernel", want: true},
		{name: "empty pattern", patterns: []string{""}, path: "/anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scanner{opts: Options{Exclude: tt.patterns}}
			if got := s.isExcluded(tt.path); got != tt.want {
				t.Errorf("isExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// BenchmarkEnumerate benchmarks enumeration of a wide tree.
func BenchmarkEnumerate(b *testing.B) {
	root := b.TempDir()
	for i := range 20 {
		dir := filepath.Join(root, fmt.Sprintf("dir%02d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.Fatalf("failed to create dir: %v", err)
		}
		for j := range 50 {
			path := filepath.Join(dir, fmt.Sprintf("file%02d", j))
			if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
				b.Fatalf("failed to create file: %v", err)
			}
		}
	}

	s := New(Options{Recursive: true, DirWorkers: 8})
	for b.Loop() {
		if _, err := s.Enumerate(context.Background(), []string{root}); err != nil {
			b.Fatal(err)
		}
	}
}
