package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/dupe/cmd/dupe/tui"
	"github.com/jamesainslie/dupe/pkg/dupe/control"
	"github.com/jamesainslie/dupe/pkg/dupe/engine"
	"github.com/jamesainslie/dupe/pkg/dupe/logging"
	"github.com/jamesainslie/dupe/pkg/dupe/output"
	"github.com/jamesainslie/dupe/pkg/dupe/tuner"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// runScan is the main scan command handler.
func runScan(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args)
	if err != nil {
		return err
	}

	if !s.NoTUI && isatty.IsTerminal(os.Stdout.Fd()) {
		return runInteractiveScan(cmd.Context(), s)
	}
	return runNonInteractiveScan(cmd.Context(), s)
}

// loadSettings detects system resources and resolves the scan settings.
func loadSettings(args []string) (*runSettings, error) {
	resources, err := tuner.Detect()
	if err != nil {
		printVerbose("Failed to detect system resources, using defaults: %v", err)
		resources = tuner.SystemResources{
			CPUCores:     runtime.NumCPU(),
			TotalRAM:     8 * types.GiB,
			AvailableRAM: 4 * types.GiB,
		}
	}

	s, err := buildSettings(v, args, resources)
	if err != nil {
		return nil, err
	}

	printVerbose("System: %d CPUs, %s RAM, %s available",
		resources.CPUCores,
		types.FormatSize(resources.TotalRAM),
		types.FormatSize(resources.AvailableRAM))
	printVerbose("Config: %d dir workers, %d hash workers, %d in flight, %s",
		s.Tuned.DirWorkers, s.Tuned.HashWorkers, s.Tuned.MaxInFlight, s.Engine.Algorithm)
	return s, nil
}

// runInteractiveScan runs the scan behind the TUI.
func runInteractiveScan(ctx context.Context, s *runSettings) error {
	if err := initTUILogging(); err != nil {
		return fmt.Errorf("failed to initialize TUI logging: %w", err)
	}

	var (
		ui *tui.Program
		wd *watchdog
	)
	opts := s.Engine
	opts.OnEvent = func(ev engine.Event) {
		wd.Touch()
		ui.Send(ev)
	}
	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	wd = newWatchdog(s.IdleTimeout, eng.SetAbort, eng.Paused)
	ui = tui.New(ctx, tui.Options{Roots: s.Roots, Controls: eng})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var runErr error
	g := new(errgroup.Group)
	g.Go(func() error {
		err := ui.Run()
		if err != nil {
			eng.SetAbort()
		}
		return err
	})
	g.Go(func() error {
		wd.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		defer stop()
		report, err := eng.Run(runCtx, s.Roots)
		runErr = err

		var result *output.Result
		if err == nil {
			result = toOutputResult(report)
		}
		ui.Finish(result, err)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	switch {
	case wd.Fired() && runErr != nil:
		return fmt.Errorf("no progress for %v: %w", s.IdleTimeout, runErr)
	case isAbort(runErr):
		// The user stopped the run from the TUI.
		return nil
	}
	return runErr
}

// runNonInteractiveScan runs the scan and prints the result in the
// selected format.
func runNonInteractiveScan(ctx context.Context, s *runSettings) error {
	formatter, err := newFormatter(s)
	if err != nil {
		return err
	}
	log := logging.Get("cli")

	var wd *watchdog
	opts := s.Engine
	opts.OnEvent = func(ev engine.Event) {
		wd.Touch()
		logEvent(log, ev)
	}
	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	wd = newWatchdog(s.IdleTimeout, eng.SetAbort, eng.Paused)

	if s.Output == "pretty" {
		printInfo("Scanning %s...", strings.Join(s.Roots, ", "))
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var report *engine.Report
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		wd.Run(gctx)
		return nil
	})
	g.Go(func() error {
		defer stop()
		r, err := eng.Run(gctx, s.Roots)
		report = r
		return err
	})

	if err := g.Wait(); err != nil {
		if wd.Fired() {
			return fmt.Errorf("no progress for %v: %w", s.IdleTimeout, err)
		}
		if isAbort(err) {
			printInfo("Scan aborted, no results")
			return err
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, toOutputResult(report)); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// isAbort reports whether err means the run was stopped rather than failed.
func isAbort(err error) bool {
	return errors.Is(err, control.ErrAborted) || errors.Is(err, context.Canceled)
}

// toOutputResult converts an engine report for the formatters.
func toOutputResult(r *engine.Report) *output.Result {
	return &output.Result{
		Groups: output.NewGroups(r.Groups),
		Stats: output.ScanStats{
			DirsScanned:  r.DirsScanned,
			FilesScanned: r.Files,
			FilesHashed:  r.Hashed,
			BytesHashed:  r.BytesHashed,
			Duration:     r.Elapsed,
		},
		Roots:     r.Roots,
		Algorithm: r.Algorithm.String(),
		Warnings:  output.Warnings(r.Errors),
	}
}

// logEvent records engine events when no TUI is showing them.
func logEvent(log *logging.Logger, ev engine.Event) {
	switch ev := ev.(type) {
	case engine.ScanProgress:
		log.Debug("scanning", "dirs", ev.DirsScanned, "files", ev.FilesFound, "path", ev.CurrentPath)
	case engine.EnumerationFinished:
		log.Info("enumeration finished", "run", ev.RunID, "files", len(ev.Files), "errors", len(ev.Errors), "aborted", ev.Aborted)
		for _, e := range ev.Errors {
			log.Warn("skipped", "path", e.Path, "error", e.Error)
		}
	case engine.Progress:
		log.Debug("hashing", "percent", ev.Percent)
	case engine.DuplicateFound:
		log.Debug("duplicate group", "digest", ev.Group.Digest, "files", len(ev.Group.Paths), "size", ev.Group.Size)
	case engine.HashingFinished:
		log.Info("hashing finished", "run", ev.RunID, "groups", ev.Groups, "failed", len(ev.Failed), "aborted", ev.Aborted)
		for _, e := range ev.Failed {
			log.Warn("unreadable", "path", e.Path, "error", e.Error)
		}
	}
}
