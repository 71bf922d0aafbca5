// Package io implements the buffered writer behind the merged output file.
package io

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/x-stp/ulpfilter/internal/metrics"
)

const (
	// DefaultBufferSize is the default buffer size for disk I/O
	DefaultBufferSize = 256 * 1024 // 256KB

	// FlushInterval is how often to flush buffers automatically
	FlushInterval = 2 * time.Second
)

var (
	// ErrWriterClosed is returned when attempting to write to a closed writer
	ErrWriterClosed = errors.New("output writer closed")
)

// WriterMetrics holds counters for a writer
type WriterMetrics struct {
	LinesWritten  atomic.Int64
	BytesWritten  atomic.Int64
	FlushCount    atomic.Int64
	ErrorCount    atomic.Int64
	LastFlushTime atomic.Int64 // Unix timestamp in nanoseconds
}

// LineWriter appends whole lines to one output file. Lines are never interleaved: each
// WriteLine holds the lock for the full record and its terminator.
type LineWriter struct {
	// Immutable after creation
	fs            afero.Fs
	path          string
	file          afero.File
	bufWriter     *bufio.Writer
	flushInterval time.Duration
	log           logrus.FieldLogger

	mu     sync.Mutex
	closed bool

	ctx     context.Context
	cancel  context.CancelFunc
	flusher sync.WaitGroup

	metrics WriterMetrics
}

// Options configures a LineWriter
type Options struct {
	BufferSize    int
	FlushInterval time.Duration
	Logger        logrus.FieldLogger
}

// DefaultOptions returns the default options for LineWriter
func DefaultOptions() *Options {
	return &Options{
		BufferSize:    DefaultBufferSize,
		FlushInterval: FlushInterval,
	}
}

// NewLineWriter truncates or creates path on fs and starts the background flusher.
func NewLineWriter(ctx context.Context, fs afero.Fs, path string, options *Options) (*LineWriter, error) {
	if options == nil {
		options = DefaultOptions()
	}
	if options.BufferSize <= 0 {
		options.BufferSize = DefaultBufferSize
	}
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &LineWriter{
		fs:            fs,
		path:          path,
		file:          file,
		bufWriter:     bufio.NewWriterSize(file, options.BufferSize),
		flushInterval: options.FlushInterval,
		log:           logger.WithField("output", path),
		ctx:           wctx,
		cancel:        cancel,
	}

	if w.flushInterval > 0 {
		w.startBackgroundFlusher()
	}
	return w, nil
}

// startBackgroundFlusher starts a goroutine that periodically flushes the buffer
func (w *LineWriter) startBackgroundFlusher() {
	ticker := time.NewTicker(w.flushInterval)
	w.flusher.Add(1)

	go func() {
		defer w.flusher.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.Flush(); err != nil && !errors.Is(err, ErrWriterClosed) {
					w.log.WithError(err).Warn("Periodic flush failed")
				}
			case <-w.ctx.Done():
				return
			}
		}
	}()
}

// WriteLine appends line followed by '\n'.
func (w *LineWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.bufWriter.WriteString(line)
	if err == nil {
		err = w.bufWriter.WriteByte('\n')
		if err == nil {
			n++
		}
	}
	metrics.GetMetrics().RecordWrite(n, err)
	if err != nil {
		w.metrics.ErrorCount.Add(1)
		return fmt.Errorf("failed to write to %s: %w", w.path, err)
	}

	w.metrics.BytesWritten.Add(int64(n))
	w.metrics.LinesWritten.Add(1)
	return nil
}

// Flush pushes buffered lines to the file.
func (w *LineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	return w.flushLocked()
}

func (w *LineWriter) flushLocked() error {
	if w.bufWriter.Buffered() == 0 {
		return nil
	}
	err := w.bufWriter.Flush()
	metrics.GetMetrics().RecordFlush(err)
	if err != nil {
		w.metrics.ErrorCount.Add(1)
		return fmt.Errorf("failed to flush %s: %w", w.path, err)
	}
	w.metrics.FlushCount.Add(1)
	w.metrics.LastFlushTime.Store(time.Now().UnixNano())
	return nil
}

// Close stops the flusher, flushes what is left and closes the file. Calling it twice is safe.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	flushErr := w.flushLocked()
	w.mu.Unlock()

	w.cancel()
	w.flusher.Wait()

	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, closeErr)
	}
	return nil
}

// Path returns the output path.
func (w *LineWriter) Path() string { return w.path }

// GetMetrics returns the writer's counters.
func (w *LineWriter) GetMetrics() *WriterMetrics { return &w.metrics }
