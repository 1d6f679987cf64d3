package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/logging"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// defaultRotationSize is used when logging.rotation.max_size is empty or
// cannot be parsed.
const defaultRotationSize = 10 * types.MiB

// initializeLogging is the PersistentPreRunE hook. It reads the config file,
// makes sure the XDG directories exist and starts file logging.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := config.Read(v); err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.MkdirAll(config.StateDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := logging.Init(loggingConfig(cfg, false)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Get("cli").Debug("config loaded", "file", v.ConfigFileUsed())
	return nil
}

// initTUILogging re-initializes logging so nothing is written to the
// terminal while the TUI owns it.
func initTUILogging() error {
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	return logging.Init(loggingConfig(cfg, true))
}

// loggingConfig maps the logging section onto the logging package.
func loggingConfig(cfg *config.Config, tui bool) logging.Config {
	console := "warn"
	switch {
	case getVerbose():
		console = "debug"
	case getQuiet():
		console = "error"
	}

	path := cfg.Logging.Path
	if path == "" {
		path = config.DefaultLogPath()
	}

	return logging.Config{
		Level:        cfg.Logging.Level,
		Path:         path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: console,
		TUIMode:      tui,
	}
}

// parseRotationConfig converts the config file form, where MaxSize is a
// size string, to the logging form.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(defaultRotationSize)
	if rc.MaxSize != "" {
		if n, err := types.ParseSize(rc.MaxSize); err == nil && n > 0 {
			maxSize = n
		}
	}
	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxBackups: rc.MaxBackups,
	}
}
