// Package metrics holds the Prometheus instruments of a filter run. Nothing is served over
// the network; the registry is written to a textfile when the run ends.
package metrics

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
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry          = prometheus.NewRegistry()
	defaultRegisterer = promauto.With(registry)
	metricsEnabled    bool
	enableMu          sync.RWMutex
)

// File outcome labels.
const (
	FileProcessed = "processed"
	FileSkipped   = "skipped"
	FileFailed    = "failed"
)

// Queue labels.
const (
	QueueInput  = "input"
	QueueOutput = "output"
)

// Metrics contains all the Prometheus metrics for a run.
type Metrics struct {
	// Line metrics
	LinesRead     prometheus.Counter
	LinesAccepted prometheus.Counter
	LinesRejected *prometheus.CounterVec

	// File metrics
	Files        *prometheus.CounterVec
	FileDuration prometheus.Histogram

	// Worker metrics
	BatchDuration prometheus.Histogram
	BatchSize     prometheus.Histogram
	Workers       prometheus.Gauge

	// Queue metrics
	QueueDepth *prometheus.GaugeVec

	// Output metrics
	OutputBytes   prometheus.Counter
	OutputFlushes prometheus.Counter
	OutputErrors  prometheus.Counter

	// Dedup metrics
	DedupEntries prometheus.Gauge
}

var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics turns on collection. Until it is called every helper below is a no-op.
func EnableMetrics() {
	enableMu.Lock()
	metricsEnabled = true
	enableMu.Unlock()
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func IsMetricsEnabled() bool {
	enableMu.RLock()
	defer enableMu.RUnlock()
	return metricsEnabled
}

func newMetrics() *Metrics {
	buckets := []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5}
	fileBuckets := []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300, 900}

	return &Metrics{
		LinesRead: defaultRegisterer.NewCounter(prometheus.CounterOpts{
			Name: "ulpfilter_lines_read_total",
			Help: "Total number of input lines handed to workers",
		}),
		LinesAccepted: defaultRegisterer.NewCounter(prometheus.CounterOpts{
			Name: "ulpfilter_lines_accepted_total",
			Help: "Total number of lines accepted and queued for output",
		}),
		LinesRejected: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulpfilter_lines_rejected_total",
				Help: "Total number of rejected lines by reason",
			},
			[]string{"reason"},
		),

		Files: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ulpfilter_files_total",
				Help: "Input files by outcome",
			},
			[]string{"status"},
		),
		FileDuration: defaultRegisterer.NewHistogram(prometheus.HistogramOpts{
			Name:    "ulpfilter_file_duration_seconds",
			Help:    "Time spent filtering one input file",
			Buckets: fileBuckets,
		}),

		BatchDuration: defaultRegisterer.NewHistogram(prometheus.HistogramOpts{
			Name:    "ulpfilter_batch_duration_seconds",
			Help:    "Time a worker spends classifying one batch",
			Buckets: buckets,
		}),
		BatchSize: defaultRegisterer.NewHistogram(prometheus.HistogramOpts{
			Name:    "ulpfilter_batch_size_lines",
			Help:    "Lines per batch popped by a worker",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Workers: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "ulpfilter_workers",
			Help: "Number of filter workers per file",
		}),

		QueueDepth: defaultRegisterer.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ulpfilter_queue_depth",
				Help: "Pending items in a queue when last sampled",
			},
			[]string{"queue"},
		),

		OutputBytes: defaultRegisterer.NewCounter(prometheus.CounterOpts{
			Name: "ulpfilter_output_bytes_total",
			Help: "Bytes written to the output file",
		}),
		OutputFlushes: defaultRegisterer.NewCounter(prometheus.CounterOpts{
			Name: "ulpfilter_output_flushes_total",
			Help: "Buffer flushes of the output file",
		}),
		OutputErrors: defaultRegisterer.NewCounter(prometheus.CounterOpts{
			Name: "ulpfilter_output_errors_total",
			Help: "Write or flush errors on the output file",
		}),

		DedupEntries: defaultRegisterer.NewGauge(prometheus.GaugeOpts{
			Name: "ulpfilter_dedup_entries",
			Help: "Distinct records held by the duplicate set at the end of the last file",
		}),
	}
}

// MeasureDuration starts a timer that observes into h when the returned func is called.
func MeasureDuration(h prometheus.Observer) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		h.Observe(time.Since(start).Seconds())
	}
}

// ObserveBatch records the outcome of one worker batch.
func (m *Metrics) ObserveBatch(lines, accepted int, rejected map[string]int) {
	if !IsMetricsEnabled() {
		return
	}
	m.LinesRead.Add(float64(lines))
	m.LinesAccepted.Add(float64(accepted))
	m.BatchSize.Observe(float64(lines))
	for reason, n := range rejected {
		if n > 0 {
			m.LinesRejected.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// FileDone counts a finished, skipped or failed input file.
func (m *Metrics) FileDone(status string) {
	if !IsMetricsEnabled() {
		return
	}
	m.Files.WithLabelValues(status).Inc()
}

// UpdateQueueDepth samples the pending item count of a queue.
func (m *Metrics) UpdateQueueDepth(queue string, depth int) {
	if !IsMetricsEnabled() {
		return
	}
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordWrite records bytes appended to the output buffer.
func (m *Metrics) RecordWrite(n int, err error) {
	if !IsMetricsEnabled() {
		return
	}
	if err != nil {
		m.OutputErrors.Inc()
		return
	}
	m.OutputBytes.Add(float64(n))
}

// RecordFlush records one flush of the output buffer.
func (m *Metrics) RecordFlush(err error) {
	if !IsMetricsEnabled() {
		return
	}
	if err != nil {
		m.OutputErrors.Inc()
		return
	}
	m.OutputFlushes.Inc()
}

// SetWorkers records the per-file worker count.
func (m *Metrics) SetWorkers(n int) {
	if !IsMetricsEnabled() {
		return
	}
	m.Workers.Set(float64(n))
}

// SetDedupEntries records the size of the duplicate set.
func (m *Metrics) SetDedupEntries(n int) {
	if !IsMetricsEnabled() {
		return
	}
	m.DedupEntries.Set(float64(n))
}

// WriteTextfile writes the registry in the text exposition format to path, atomically.
func WriteTextfile(path string) error {
	if !IsMetricsEnabled() {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
