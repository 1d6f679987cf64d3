package hasher

import (
	"context"
	"crypto/sha1" //nolint:gosec // test vector
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

func writeFiles(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return root, paths
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		size    int
		wantErr bool
	}{
		{in: "", want: SHA1, size: 20},
		{in: "sha1", want: SHA1, size: 20},
		{in: "SHA256", want: SHA256, size: 32},
		{in: " xxhash ", want: XXHash, size: 8},
		{in: "md5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.size, got.Size())
		})
	}

	assert.Zero(t, Algorithm("crc").Size())
	assert.Len(t, Algorithms(), 3)
}

func TestNewRejectsUnknownAlgorithm(t *testing.T) {
	_, err := New(Options{Algorithm: "whirlpool"})
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestHashFileDigests(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"hi.txt": "hi"})
	ctx := context.Background()

	sha1Sum := sha1.Sum([]byte("hi")) //nolint:gosec // test vector
	sha256Sum := sha256.Sum256([]byte("hi"))
	xx := xxhash.Sum64([]byte("hi"))

	want := map[Algorithm]string{
		SHA1:   fmt.Sprintf("%x", sha1Sum),
		SHA256: fmt.Sprintf("%x", sha256Sum),
		XXHash: fmt.Sprintf("%016x", xx),
	}

	for algo, digest := range want {
		t.Run(string(algo), func(t *testing.T) {
			p, err := New(Options{Algorithm: algo})
			require.NoError(t, err)

			rec, err := p.HashFile(ctx, paths[0])
			require.NoError(t, err)
			assert.Equal(t, digest, rec.Digest.String())
			assert.Equal(t, int64(2), rec.Size)
			assert.Equal(t, paths[0], rec.Path)
		})
	}
}

func TestHashFileIsDeterministicAcrossChunkSizes(t *testing.T) {
	content := strings.Repeat("0123456789abcdef", 4096)
	_, paths := writeFiles(t, map[string]string{"big.bin": content})
	ctx := context.Background()

	var first types.HashRecord
	for i, chunk := range []int64{1, 7, 4096, types.MiB} {
		p, err := New(Options{ChunkSize: chunk})
		require.NoError(t, err)

		rec, err := p.HashFile(ctx, paths[0])
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), rec.Size)
		if i == 0 {
			first = rec
			continue
		}
		assert.Equal(t, first.Digest, rec.Digest, "chunk size %d", chunk)
	}
}

func TestHashFileMissing(t *testing.T) {
	p, err := New(Options{})
	require.NoError(t, err)

	_, err = p.HashFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHashAllGroupsDuplicates(t *testing.T) {
	root, paths := writeFiles(t, map[string]string{
		"A/x.txt": "hi",
		"A/y.txt": "hi",
		"B/z.txt": "bye",
	})

	var percents []int
	p, err := New(Options{Workers: 3, OnProgress: func(pct int) { percents = append(percents, pct) }})
	require.NoError(t, err)

	res, err := p.HashAll(context.Background(), paths)
	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Equal(t, 3, res.Hashed)
	assert.Equal(t, int64(7), res.Bytes)
	assert.Empty(t, res.Failed)

	groups := res.Index.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, []string{
		filepath.Join(root, "A", "x.txt"),
		filepath.Join(root, "A", "y.txt"),
	}, groups[0].Paths)
	assert.Equal(t, int64(2), groups[0].Size)

	assert.Equal(t, []int{33, 66, 99}, percents)
	res.Progress.Finish()
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestHashAllExcludesUnopenableFiles(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{
		"a.txt": "same",
		"b.txt": "same",
		"c.txt": "same",
	})
	// b.txt disappears between enumeration and hashing.
	require.NoError(t, os.Remove(paths[1]))
	gone := paths[1]

	p, err := New(Options{Workers: 2})
	require.NoError(t, err)

	res, err := p.HashAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, gone, res.Failed[0].Path)

	groups := res.Index.Groups()
	require.Len(t, groups, 1)
	assert.NotContains(t, groups[0].Paths, gone)
	assert.Len(t, groups[0].Paths, 2)
}

func TestHashAllEmpty(t *testing.T) {
	var percents []int
	p, err := New(Options{OnProgress: func(pct int) { percents = append(percents, pct) }})
	require.NoError(t, err)

	res, err := p.HashAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Index.Len())
	assert.Empty(t, percents)

	res.Progress.Finish()
	assert.Equal(t, []int{100}, percents)
}

func TestHashAllAbort(t *testing.T) {
	files := make(map[string]string)
	for i := range 50 {
		files[fmt.Sprintf("f%02d", i)] = strings.Repeat("x", 1024)
	}
	_, paths := writeFiles(t, files)

	ctrl := control.New()
	require.NoError(t, ctrl.Begin())

	var percents []int
	p, err := New(Options{
		Workers:     1,
		MaxInFlight: 1,
		ChunkSize:   16,
		Control:     ctrl,
		OnProgress: func(pct int) {
			percents = append(percents, pct)
			ctrl.Abort()
		},
	})
	require.NoError(t, err)

	res, err := p.HashAll(context.Background(), paths)
	require.ErrorIs(t, err, control.ErrAborted)
	assert.True(t, res.Aborted)
	assert.Equal(t, res.Stats.Dispatched, res.Stats.Completed)
	assert.Less(t, res.Stats.Dispatched, int64(50))
	assert.Equal(t, []int{2}, percents, "no progress after abort")

	res.Progress.Finish()
	assert.Equal(t, []int{2}, percents, "Finish is silent after abort")
}

func TestHashAllContextCancel(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"a": "1", "b": "2"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New(Options{})
	require.NoError(t, err)

	res, err := p.HashAll(ctx, paths)
	require.ErrorIs(t, err, control.ErrAborted)
	assert.True(t, res.Aborted)
	assert.Zero(t, res.Hashed)
}

func TestHashAllPause(t *testing.T) {
	_, paths := writeFiles(t, map[string]string{"a": "1", "b": "1"})

	ctrl := control.New()
	require.NoError(t, ctrl.Begin())
	ctrl.SetPaused(true)

	p, err := New(Options{Control: ctrl})
	require.NoError(t, err)

	done := make(chan *Result, 1)
	go func() {
		res, _ := p.HashAll(context.Background(), paths)
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("hashing finished while paused")
	case <-time.After(50 * time.Millisecond):
	}

	ctrl.SetPaused(false)
	select {
	case res := <-done:
		assert.Equal(t, 2, res.Hashed)
		assert.Len(t, res.Index.Groups(), 1)
	case <-time.After(5 * time.Second):
		t.Fatal("hashing did not resume")
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", Outcome(7).String())
}
