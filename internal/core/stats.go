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
	"sync/atomic"
	"time"

	"github.com/x-stp/ulpfilter/internal/filter"
)

// Stats uses atomic counters for safe concurrent updates from workers. The progress display
// reads them without taking any lock.
type Stats struct {
	FilesTotal     atomic.Int64
	FilesProcessed atomic.Int64
	FilesSkipped   atomic.Int64
	FilesFailed    atomic.Int64

	LinesRead      atomic.Int64 // queued by producers
	LinesProcessed atomic.Int64 // classified by workers
	Accepted       atomic.Int64 // handed to the writer, all files
	FileAccepted   atomic.Int64 // handed to the writer, current file only
	OutputBytes    atomic.Int64 // written to the output buffer, terminators included

	rejected [filter.RejectDuplicate + 1]atomic.Int64

	currentFile atomic.Value // string
	startTime   atomic.Int64 // Unix nanoseconds
}

func (s *Stats) addRejected(r filter.Reason, n int64) {
	if n != 0 && int(r) < len(s.rejected) {
		s.rejected[r].Add(n)
	}
}

// Rejected returns the number of lines rejected for reason r.
func (s *Stats) Rejected(r filter.Reason) int64 {
	if int(r) >= len(s.rejected) {
		return 0
	}
	return s.rejected[r].Load()
}

// RejectedTotal returns the number of rejected lines across all reasons.
func (s *Stats) RejectedTotal() int64 {
	var total int64
	for i := range s.rejected {
		total += s.rejected[i].Load()
	}
	return total
}

// CurrentFile returns the file being processed, or "" between files.
func (s *Stats) CurrentFile() string {
	v, _ := s.currentFile.Load().(string)
	return v
}

func (s *Stats) setCurrentFile(path string) { s.currentFile.Store(path) }

// StartTime returns when the run began; zero before Run is called.
func (s *Stats) StartTime() time.Time {
	ns := s.startTime.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Elapsed returns the time since the run began.
func (s *Stats) Elapsed() time.Duration {
	start := s.StartTime()
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	FilesTotal     int64
	FilesProcessed int64
	FilesSkipped   int64
	FilesFailed    int64
	LinesRead      int64
	LinesProcessed int64
	Accepted       int64
	FileAccepted   int64
	OutputBytes    int64
	Rejected       map[filter.Reason]int64
	RejectedTotal  int64
	CurrentFile    string
	Elapsed        time.Duration
}

// Snapshot copies every counter. Counters are loaded one at a time, so totals taken while
// workers run may be off by a batch.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		FilesTotal:     s.FilesTotal.Load(),
		FilesProcessed: s.FilesProcessed.Load(),
		FilesSkipped:   s.FilesSkipped.Load(),
		FilesFailed:    s.FilesFailed.Load(),
		LinesRead:      s.LinesRead.Load(),
		LinesProcessed: s.LinesProcessed.Load(),
		Accepted:       s.Accepted.Load(),
		FileAccepted:   s.FileAccepted.Load(),
		OutputBytes:    s.OutputBytes.Load(),
		Rejected:       make(map[filter.Reason]int64, len(filter.RejectReasons)),
		CurrentFile:    s.CurrentFile(),
		Elapsed:        s.Elapsed(),
	}
	for _, r := range filter.RejectReasons {
		n := s.Rejected(r)
		snap.Rejected[r] = n
		snap.RejectedTotal += n
	}
	return snap
}

// LinesPerSecond is the classification rate over the whole run.
func (s Snapshot) LinesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.LinesProcessed) / s.Elapsed.Seconds()
}
