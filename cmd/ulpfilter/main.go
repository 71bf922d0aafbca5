/*
Package main is the entry point for the ulpfilter command-line application.

ulpfilter filters credential lists in url:login:pass or login:pass layout. Every input line is
checked for an email-shaped login, matched against domain allow and deny lists from a
config.ini rules file, optionally narrowed by a free-form regular expression, deduplicated per
input file and appended to one merged output file, optionally reshaped.

Inputs are paths or wildcard patterns given as arguments. With no arguments on an interactive
terminal, the user is asked for a pattern. The `config` subcommand prints the effective rules.

Every flag can also be set through ULPFILTER_* environment variables or a .env file.
Graceful shutdown is handled via context cancellation triggered by OS signals (SIGINT, SIGTERM).
*/
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
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/x-stp/ulpfilter/internal/config"
	"github.com/x-stp/ulpfilter/internal/core"
	"github.com/x-stp/ulpfilter/internal/discovery"
	"github.com/x-stp/ulpfilter/internal/logger"
	"github.com/x-stp/ulpfilter/internal/metrics"
)

const usageLine = "Usage: ulpfilter [flags] <path-or-wildcard> [more...]"

var errNoArgs = errors.New("no input files given")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ulpfilter [flags] <path-or-wildcard> [more...]",
		Short: "ulpfilter - filter url:login:pass credential lists by domain rules",
		Long: `ulpfilter reads credential lines from the given files or wildcard patterns,
keeps those whose login is an email address accepted by the rules in config.ini,
drops duplicates within each file and writes the result to one output file.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFilter,
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", config.DefaultConfigPath, "Filter rules file")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringP("output", "o", config.DefaultOutputPath, "Merged output file (truncated at start)")
	f.IntP("workers", "w", 0, "Filter workers per file (0 for one per CPU)")
	f.Int("batch", config.DefaultBatchSize, "Lines a worker takes from the queue at once")
	f.Int("queue-capacity", 0, "Bound on queued lines and records (0 for unbounded)")
	f.Int("dedup-shards", config.DefaultDedupShards, "Independently locked shards of the duplicate set")
	f.Bool("progress", true, "Show progress while filtering")
	f.Duration("progress-interval", config.DefaultProgressInterval, "Progress refresh interval")
	f.String("metrics-file", "", "Write Prometheus metrics in text format to this file at the end of the run")
	f.Bool("pin-workers", false, "Pin each worker to a CPU core (Linux only)")
	f.String("root", ".", "Directory searched recursively for wildcard patterns")

	root.AddCommand(newConfigCmd())
	return root
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFilter is the default command: resolve inputs, run the pipeline, report.
func runFilter(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logger.Setup(settings.LogLevel)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	if len(args) == 0 {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(cmd.ErrOrStderr(), usageLine)
			return errNoArgs
		}
		pattern, err := promptPattern(cmd.InOrStdin(), stdout)
		if err != nil {
			return err
		}
		args = []string{pattern}
	}

	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}
	reportRules(log, cfg)

	fs := afero.NewOsFs()
	paths, err := discovery.Expand(fs, settings.Root, args, []string{settings.OutputPath, settings.ConfigPath})
	if err != nil {
		return err
	}
	log.WithField("files", len(paths)).Debug("Resolved input files")

	if settings.MetricsFile != "" {
		metrics.EnableMetrics()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := newPrinter(stdout, isTerminal(stdout))
	pipeline := core.NewPipeline(cfg, core.Options{
		Fs:            fs,
		OutputPath:    settings.OutputPath,
		Workers:       settings.Workers,
		BatchSize:     settings.BatchSize,
		QueueCapacity: settings.QueueCapacity,
		DedupShards:   settings.DedupShards,
		PinWorkers:    settings.PinWorkers,
		Logger:        log,
		OnFileStart:   printer.fileStarted,
	})

	// Stats display runs until the pipeline returns.
	progressCtx, cancelProgress := context.WithCancel(context.Background())
	var progressWg sync.WaitGroup
	if settings.Progress {
		progressWg.Add(1)
		go func() {
			defer progressWg.Done()
			displayProgress(progressCtx, printer, pipeline, settings.ProgressInterval)
		}()
	}

	runErr := pipeline.Run(ctx, paths)

	cancelProgress()
	progressWg.Wait()

	printSummary(stdout, pipeline.Stats().Snapshot(), settings.OutputPath)

	if settings.MetricsFile != "" {
		if err := metrics.WriteTextfile(settings.MetricsFile); err != nil {
			log.WithError(err).Error("Failed to write metrics")
		}
	}

	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(stdout, "Filtering complete. Check %s for results.\n", settings.OutputPath)
	return nil
}

// reportRules logs pattern warnings and calls out rule sets that make the filter a no-op.
func reportRules(log logrus.FieldLogger, cfg *config.Filter) {
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}
	if _, err := cfg.CustomFilterRegexp(); err != nil {
		log.WithError(err).Warn("custom_filter does not compile; files with email-shaped lines will be aborted")
	}
	if cfg.EmailRemove.Len()+cfg.EmailContains.Len()+cfg.URLRemove.Len()+cfg.URLContains.Len() == 0 && cfg.CustomFilter == "" {
		log.Info("No domain rules or custom_filter configured; every line with a valid email login is kept")
	}
	log.WithFields(logrus.Fields{
		"format":         cfg.Format,
		"separator":      cfg.Separator,
		"convert_format": cfg.ConvertFormat,
		"email_remove":   cfg.EmailRemove.Len(),
		"email_contains": cfg.EmailContains.Len(),
		"url_remove":     cfg.URLRemove.Len(),
		"url_contains":   cfg.URLContains.Len(),
	}).Debug("Loaded filter rules")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
