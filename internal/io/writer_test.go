package io

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, fs afero.Fs, path string) []string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	text := string(data)
	if text == "" {
		return nil
	}
	require.True(t, strings.HasSuffix(text, "\n"), "output must end with a newline")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func TestLineWriterTruncatesAndWrites(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "out/result.txt", []byte("stale\n"), 0o644))

	w, err := NewLineWriter(context.Background(), fs, "out/result.txt", &Options{FlushInterval: 0})
	require.NoError(t, err)
	require.NoError(t, w.WriteLine("a@b.com:pw"))
	require.NoError(t, w.WriteLine("c@d.com:pw"))
	require.NoError(t, w.Close())

	assert.Equal(t, []string{"a@b.com:pw", "c@d.com:pw"}, readLines(t, fs, "out/result.txt"))
	assert.Equal(t, int64(2), w.GetMetrics().LinesWritten.Load())
	assert.Equal(t, int64(len("a@b.com:pw\nc@d.com:pw\n")), w.GetMetrics().BytesWritten.Load())
}

func TestLineWriterCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w, err := NewLineWriter(context.Background(), fs, "deep/nested/out.txt", nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	exists, err := afero.Exists(fs, "deep/nested/out.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLineWriterOpenFailure(t *testing.T) {
	t.Parallel()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := NewLineWriter(context.Background(), fs, "out.txt", nil)
	require.Error(t, err)
}

func TestLineWriterClosed(t *testing.T) {
	t.Parallel()

	w, err := NewLineWriter(context.Background(), afero.NewMemMapFs(), "out.txt", nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	assert.ErrorIs(t, w.WriteLine("x"), ErrWriterClosed)
	assert.ErrorIs(t, w.Flush(), ErrWriterClosed)
}

func TestLineWriterBackgroundFlush(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w, err := NewLineWriter(context.Background(), fs, "out.txt", &Options{
		BufferSize:    1 << 20,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteLine("partial"))
	assert.Eventually(t, func() bool {
		data, err := afero.ReadFile(fs, "out.txt")
		return err == nil && string(data) == "partial\n"
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, w.GetMetrics().FlushCount.Load(), int64(1))
}

func TestLineWriterConcurrentLinesNotInterleaved(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	w, err := NewLineWriter(context.Background(), fs, "out.txt", &Options{BufferSize: 64})
	require.NoError(t, err)

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	var want []string
	for g := 0; g < writers; g++ {
		for i := 0; i < perWriter; i++ {
			want = append(want, fmt.Sprintf("user%d-%d@example.com:password-%d", g, i, i))
		}
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				assert.NoError(t, w.WriteLine(fmt.Sprintf("user%d-%d@example.com:password-%d", g, i, i)))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	got := readLines(t, fs, "out.txt")
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}
