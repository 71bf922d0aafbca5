package core

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
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/x-stp/ulpfilter/internal/config"
	"github.com/x-stp/ulpfilter/internal/dedup"
	"github.com/x-stp/ulpfilter/internal/filter"
	uio "github.com/x-stp/ulpfilter/internal/io"
	"github.com/x-stp/ulpfilter/internal/metrics"
	"github.com/x-stp/ulpfilter/internal/queue"
)

// Options holds operational parameters of a Pipeline. Zero values select defaults.
type Options struct {
	Fs            afero.Fs // OS filesystem when nil
	OutputPath    string
	Workers       int // max(1, NumCPU) when <= 0
	BatchSize     int
	QueueCapacity int // 0 is unbounded
	DedupShards   int
	PinWorkers    bool
	FlushInterval time.Duration
	Logger        *logrus.Logger

	// OnFileStart, when set, is called from Run before an input file is streamed.
	// Skipped files do not trigger it.
	OnFileStart func(path string)
}

// Pipeline orchestrates reading input files, filtering lines on a worker pool and writing
// accepted records to one merged output file.
type Pipeline struct {
	fs         afero.Fs
	cfg        *config.Filter
	classifier *filter.Classifier
	opts       Options
	log        *logrus.Entry
	debug      bool
	stats      *Stats
	metrics    *metrics.Metrics

	input  *queue.Queue[string]
	output *queue.Queue[string]
	seen   *dedup.Set

	rejectLog rate.Sometimes
}

// NewPipeline prepares a pipeline for cfg. Nothing is opened until Run.
func NewPipeline(cfg *config.Filter, opts Options) *Pipeline {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.OutputPath == "" {
		opts.OutputPath = config.DefaultOutputPath
	}
	if opts.Workers <= 0 {
		opts.Workers = max(1, runtime.NumCPU())
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = uio.FlushInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Pipeline{
		fs:         opts.Fs,
		cfg:        cfg,
		classifier: filter.New(cfg),
		opts:       opts,
		log:        logger.WithField("component", "pipeline"),
		debug:      logger.IsLevelEnabled(logrus.DebugLevel),
		stats:      &Stats{},
		metrics:    metrics.GetMetrics(),
		input:      queue.New[string](opts.QueueCapacity),
		output:     queue.New[string](opts.QueueCapacity),
		seen:       dedup.NewSet(opts.DedupShards),
		rejectLog:  rate.Sometimes{First: RejectLogBurst, Interval: RejectLogInterval},
	}
}

// Stats returns the live counters of the pipeline.
func (p *Pipeline) Stats() *Stats { return p.stats }

// Workers returns the resolved worker count.
func (p *Pipeline) Workers() int { return p.opts.Workers }

// QueueDepths returns the number of pending lines and pending output records.
func (p *Pipeline) QueueDepths() (input, output int) {
	return p.input.Len(), p.output.Len()
}

// Run filters every path in order into the output file. Missing and empty files are skipped;
// a file whose filter cannot be applied is aborted and counted as failed. The returned error
// is non-nil only for failures that end the run: the output cannot be opened, an input cannot
// be opened, the output cannot be written, or ctx was cancelled. The output is flushed and
// closed in every case once it was opened.
func (p *Pipeline) Run(ctx context.Context, paths []string) error {
	p.stats.startTime.Store(time.Now().UnixNano())
	p.stats.FilesTotal.Store(int64(len(paths)))
	p.metrics.SetWorkers(p.opts.Workers)

	writer, err := uio.NewLineWriter(ctx, p.fs, p.opts.OutputPath, &uio.Options{
		FlushInterval: p.opts.FlushInterval,
		Logger:        p.log.Logger,
	})
	if err != nil {
		return WrapError(fmt.Errorf("%w: %w", ErrOutputOpen, err), true, "output %s", p.opts.OutputPath)
	}

	writerDone := make(chan error, 1)
	go func() { writerDone <- p.drain(writer) }()

	p.log.WithFields(logrus.Fields{
		"files":   len(paths),
		"workers": p.opts.Workers,
		"batch":   p.opts.BatchSize,
		"output":  p.opts.OutputPath,
	}).Info("Starting filter run")

	var runErr error
	for _, path := range paths {
		if ctx.Err() != nil {
			runErr = fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
			break
		}
		err := p.processFile(ctx, path)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrInterrupted) || IsFatal(err) {
			runErr = err
			break
		}
		p.stats.FilesFailed.Add(1)
		p.metrics.FileDone(metrics.FileFailed)
		p.log.WithField("file", path).WithError(err).Error("File aborted")
	}
	p.stats.setCurrentFile("")

	// The writer is drained and closed whatever happened above.
	p.output.SetDone()
	writeErr := <-writerDone
	closeErr := writer.Close()

	switch {
	case runErr != nil:
		return runErr
	case writeErr != nil:
		return WrapError(writeErr, true, "write output")
	case closeErr != nil:
		return WrapError(closeErr, true, "close output")
	}
	p.log.WithFields(logrus.Fields{
		"accepted": p.stats.Accepted.Load(),
		"rejected": p.stats.RejectedTotal(),
	}).Info("Filter run complete")
	return nil
}

// processFile runs one producer and the worker pool over a single file.
func (p *Pipeline) processFile(ctx context.Context, path string) error {
	log := p.log.WithField("file", path)

	info, err := p.fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		p.skip(log, "does not exist")
		return nil
	case err != nil:
		return WrapError(fmt.Errorf("%w: %w", ErrInputOpen, err), true, "stat %s", path)
	case !info.Mode().IsRegular():
		p.skip(log, "not a regular file")
		return nil
	case info.Size() == 0:
		p.skip(log, "empty")
		return nil
	}

	file, err := p.fs.Open(path)
	if err != nil {
		return WrapError(fmt.Errorf("%w: %w", ErrInputOpen, err), true, "open %s", path)
	}
	defer file.Close()

	// Per-file state.
	p.stats.FileAccepted.Store(0)
	p.seen.Reset()
	p.input.Clear()
	p.stats.setCurrentFile(path)

	if p.opts.OnFileStart != nil {
		p.opts.OnFileStart(path)
	}
	log.WithField("bytes", info.Size()).Info("Processing file")
	observeFile := metrics.MeasureDuration(p.metrics.FileDuration)

	g, gctx := errgroup.WithContext(ctx)

	// A producer blocked on a full queue only sees cancellation through SetDone. The watcher
	// must be gone before the next file clears the queue.
	fileDone := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-gctx.Done():
			p.input.SetDone()
		case <-fileDone:
		}
	}()

	g.Go(func() error {
		defer p.input.SetDone()
		return p.produce(gctx, file)
	})
	for i := 0; i < p.opts.Workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(gctx, id, log)
		})
	}
	err = g.Wait()
	close(fileDone)
	<-watcherDone
	observeFile()
	p.metrics.SetDedupEntries(p.seen.Len())

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		return WrapError(err, false, "filter %s", path)
	}

	p.stats.FilesProcessed.Add(1)
	p.metrics.FileDone(metrics.FileProcessed)
	log.WithField("accepted", p.stats.FileAccepted.Load()).Info("Finished file")
	return nil
}

func (p *Pipeline) skip(log *logrus.Entry, why string) {
	p.stats.FilesSkipped.Add(1)
	p.metrics.FileDone(metrics.FileSkipped)
	log.WithField("reason", why).Debug("Skipping input")
}

// produce streams r line by line into the input queue. Line terminators ("\n" and a
// preceding "\r") are stripped; a final line without terminator is kept.
func (p *Pipeline) produce(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReaderSize(r, ReaderBufferSize)
	var n int
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
				if len(line) > 0 && line[len(line)-1] == '\r' {
					line = line[:len(line)-1]
				}
			}
			p.stats.LinesRead.Add(1)
			if pushErr := p.input.Push(line); pushErr != nil {
				// Workers stopped early and closed the queue; their error wins.
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read: %w", ErrInputOpen, err)
		}
		n++
		if n%CancelCheckLines == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.metrics.UpdateQueueDepth(metrics.QueueInput, p.input.Len())
		}
	}
}

// work is the main processing loop of a single worker goroutine. Each worker owns a local
// duplicate filter in front of the shared set, so it is recreated for every file.
func (p *Pipeline) work(ctx context.Context, id int, log *logrus.Entry) (err error) {
	if p.opts.PinWorkers {
		pinWorker(log, id, id%runtime.NumCPU())
	}
	defer func() {
		if r := recover(); r != nil {
			p.input.SetDone()
			err = fmt.Errorf("worker %d panicked: %v", id, r)
		}
	}()

	local := dedup.NewLocal(p.seen)
	batch := make([]string, 0, p.opts.BatchSize)
	var rejected [filter.RejectDuplicate + 1]int64

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		batch = p.input.PopBatch(batch, p.opts.BatchSize)
		if len(batch) == 0 {
			return nil
		}

		observe := metrics.MeasureDuration(p.metrics.BatchDuration)
		var accepted int64
		clear(rejected[:])

		for _, line := range batch {
			rec, reason, err := p.classifier.Classify(line)
			if err != nil {
				// Release the producer and the other workers.
				p.input.SetDone()
				return err
			}
			if reason == filter.Accepted && !local.Admit(rec.Output) {
				reason = filter.RejectDuplicate
			}
			if reason != filter.Accepted {
				rejected[reason]++
				if p.debug {
					p.logReject(log, id, reason)
				}
				continue
			}
			if err := p.output.Push(rec.Output); err != nil {
				return err
			}
			accepted++
		}

		p.stats.LinesProcessed.Add(int64(len(batch)))
		p.stats.Accepted.Add(accepted)
		p.stats.FileAccepted.Add(accepted)
		for r, n := range rejected {
			p.stats.addRejected(filter.Reason(r), n)
		}
		observe()
		p.recordBatch(len(batch), accepted, rejected[:])
	}
}

func (p *Pipeline) recordBatch(lines int, accepted int64, rejected []int64) {
	if !metrics.IsMetricsEnabled() {
		return
	}
	byReason := make(map[string]int, len(rejected))
	for r, n := range rejected {
		if n > 0 {
			byReason[filter.Reason(r).String()] = int(n)
		}
	}
	p.metrics.ObserveBatch(lines, int(accepted), byReason)
}

func (p *Pipeline) logReject(log *logrus.Entry, worker int, reason filter.Reason) {
	p.rejectLog.Do(func() {
		log.WithFields(logrus.Fields{
			"worker": worker,
			"reason": reason.String(),
		}).Debug("Rejected line")
	})
}

// drain is the long-lived writer goroutine. It keeps consuming after a write error so that
// workers never block on a bounded output queue, and reports the first error once the queue
// is done.
func (p *Pipeline) drain(w *uio.LineWriter) error {
	var firstErr error
	batch := make([]string, 0, WriterBatchSize)
	for {
		batch = p.output.PopBatch(batch, WriterBatchSize)
		if len(batch) == 0 {
			return firstErr
		}
		for _, line := range batch {
			if err := w.WriteLine(line); err != nil {
				if firstErr == nil {
					firstErr = err
					p.log.WithError(err).Error("Writing output failed; remaining records are discarded")
				}
				continue
			}
			p.stats.OutputBytes.Add(int64(len(line) + 1))
		}
		p.metrics.UpdateQueueDepth(metrics.QueueOutput, p.output.Len())
	}
}
