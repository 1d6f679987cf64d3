package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/engine"
	"github.com/jamesainslie/dupe/pkg/dupe/hasher"
	"github.com/jamesainslie/dupe/pkg/dupe/output"
	"github.com/jamesainslie/dupe/pkg/dupe/tuner"
)

// errTemplateRequired is returned for -o template without --template.
var errTemplateRequired = errors.New("--template is required when using -o template")

// runSettings is a scan resolved from the config file, environment, flags
// and detected resources.
type runSettings struct {
	Roots       []string
	Engine      engine.Options
	Tuned       tuner.OptimalConfig
	Output      string
	Template    string
	IdleTimeout time.Duration
	NoTUI       bool
}

// buildSettings resolves the settings for a scan of args. Worker counts left
// at zero are taken from the tuner.
func buildSettings(v *viper.Viper, args []string, resources tuner.SystemResources) (*runSettings, error) {
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}

	roots, err := resolveRoots(args, cfg.DefaultPath)
	if err != nil {
		return nil, err
	}

	minSize, err := cfg.MinSizeBytes()
	if err != nil {
		return nil, err
	}
	chunkSize, err := cfg.ChunkSizeBytes()
	if err != nil {
		return nil, err
	}
	algo, err := hasher.ParseAlgorithm(cfg.Hash.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("hash.algorithm %q: %w", cfg.Hash.Algorithm, err)
	}
	if cfg.IdleTimeout < 0 {
		return nil, fmt.Errorf("idle_timeout must not be negative: %v", cfg.IdleTimeout)
	}

	tuned := tuner.CalculateWithOverrides(resources, cfg.Workers.Dir, cfg.Workers.Hash)
	if cfg.MaxInFlight > 0 {
		tuned.MaxInFlight = cfg.MaxInFlight
	}

	format := cfg.Output
	if format == "" {
		format = config.DefaultOutput
	}
	tmpl := v.GetString("template")
	if format == "template" {
		if tmpl == "" {
			return nil, errTemplateRequired
		}
	} else if _, err := output.Get(format); err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}

	return &runSettings{
		Roots: roots,
		Engine: engine.Options{
			Recursive:      cfg.Recursive && !v.GetBool("no_recursive"),
			SkipSymlinks:   !cfg.FollowSymlinks,
			Exclude:        cfg.Exclude,
			MinSize:        minSize,
			DirWorkers:     tuned.DirWorkers,
			Concurrency:    tuned.HashWorkers,
			MaxInFlight:    tuned.MaxInFlight,
			Algorithm:      algo,
			ChunkSize:      chunkSize,
		},
		Tuned:       tuned,
		Output:      format,
		Template:    tmpl,
		IdleTimeout: cfg.IdleTimeout,
		// An explicit machine format always bypasses the TUI.
		NoTUI: v.GetBool("no_interactive") || format != config.DefaultOutput,
	}, nil
}

// resolveRoots expands ~ and makes every root absolute. With no arguments
// the configured default path is scanned.
func resolveRoots(args []string, defaultPath string) ([]string, error) {
	if len(args) == 0 {
		if defaultPath == "" {
			defaultPath = config.DefaultPath
		}
		args = []string{defaultPath}
	}

	roots := make([]string, 0, len(args))
	for _, arg := range args {
		expanded, err := config.ExpandPath(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

// newFormatter returns the formatter for s.
func newFormatter(s *runSettings) (output.Formatter, error) {
	if s.Output == "template" {
		return output.NewTemplateFormatter(s.Template), nil
	}
	return output.Get(s.Output)
}
