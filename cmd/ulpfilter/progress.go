package main

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
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/x-stp/ulpfilter/internal/core"
	"github.com/x-stp/ulpfilter/internal/filter"
	"github.com/x-stp/ulpfilter/internal/util"
)

const progressPathRunes = 48

// printer serialises status output so file announcements never land in the middle of a
// progress line.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	pending bool // a carriage-return line is on screen without a trailing newline
}

func newPrinter(out io.Writer, tty bool) *printer {
	return &printer{out: out, tty: tty}
}

func (p *printer) fileStarted(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
	fmt.Fprintf(p.out, "Processing file: %s\n", path)
}

func (p *printer) progress(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty {
		fmt.Fprintf(p.out, "\r%s\033[K", line)
		p.pending = true
		return
	}
	fmt.Fprintln(p.out, line)
}

// finish ends a pending carriage-return line.
func (p *printer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakLine()
}

func (p *printer) breakLine() {
	if p.pending {
		fmt.Fprintln(p.out)
		p.pending = false
	}
}

// statsSource is the part of the pipeline the progress display reads.
type statsSource interface {
	Stats() *core.Stats
	QueueDepths() (input, output int)
}

// displayProgress periodically prints pipeline progress until ctx is cancelled.
func displayProgress(ctx context.Context, p *printer, src statsSource, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			in, out := src.QueueDepths()
			p.progress(formatProgress(src.Stats().Snapshot(), in, out))
		case <-ctx.Done():
			p.finish()
			return
		}
	}
}

func formatProgress(s core.Snapshot, inDepth, outDepth int) string {
	current := "-"
	if s.CurrentFile != "" {
		current = util.DisplayPath(s.CurrentFile, progressPathRunes)
	}
	return fmt.Sprintf("Files: %d/%d | Lines: %d | Kept: %d (file %d) | Rejected: %d | Rate: %.0f lines/s | Queued: %d/%d | %s",
		s.FilesProcessed+s.FilesSkipped+s.FilesFailed,
		s.FilesTotal,
		s.LinesProcessed,
		s.Accepted,
		s.FileAccepted,
		s.RejectedTotal,
		s.LinesPerSecond(),
		inDepth,
		outDepth,
		current,
	)
}

// printSummary writes the final statistics block.
func printSummary(w io.Writer, s core.Snapshot, outputPath string) {
	header := color.New(color.FgCyan, color.Bold)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)

	header.Fprintln(w, "\n--- Filter Statistics ---")
	fmt.Fprintf(w, " Processing Time: %v\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "           Files: %d (processed %d, skipped %d, ", s.FilesTotal, s.FilesProcessed, s.FilesSkipped)
	if s.FilesFailed > 0 {
		bad.Fprintf(w, "failed %d", s.FilesFailed)
	} else {
		fmt.Fprintf(w, "failed %d", s.FilesFailed)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "      Lines Read: %d\n", s.LinesRead)
	fmt.Fprint(w, "            Kept: ")
	good.Fprintf(w, "%d\n", s.Accepted)
	fmt.Fprintf(w, "        Rejected: %d\n", s.RejectedTotal)
	for _, r := range filter.RejectReasons {
		if n := s.Rejected[r]; n > 0 {
			fmt.Fprintf(w, "  %14s: %d\n", strings.ReplaceAll(r.String(), "_", " "), n)
		}
	}
	fmt.Fprintf(w, "            Rate: %.0f lines/sec\n", s.LinesPerSecond())
	fmt.Fprintf(w, "  Output Written: %.2f MB to %s\n", float64(s.OutputBytes)/(1024*1024), outputPath)
	header.Fprintln(w, "-------------------------")
}
