package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage dupe configuration settings.

Configuration is loaded from $XDG_CONFIG_HOME/dupe/config.yaml
(~/.config/dupe/config.yaml on most systems).

Environment variables override config file settings using the DUPE_ prefix:
  DUPE_MIN_SIZE=1M
  DUPE_WORKERS_HASH=16
  DUPE_HASH_ALGORITHM=xxhash`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file and environment overrides.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a commented default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if file := v.ConfigFileUsed(); file != "" {
		fmt.Fprintf(out, "# Config file: %s\n", file)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	if err := writeSettings(out, v.AllSettings()); err != nil {
		return err
	}

	overrides := envOverrides(os.Environ())
	fmt.Fprintln(out, "\n# Environment overrides:")
	if len(overrides) == 0 {
		fmt.Fprintln(out, "#   (none)")
	}
	for _, kv := range overrides {
		fmt.Fprintf(out, "#   %s\n", kv)
	}
	return nil
}

// writeSettings renders settings as YAML, skipping flag-only keys.
func writeSettings(w io.Writer, settings map[string]any) error {
	for _, key := range []string{"quiet", "verbose", "template", "no_interactive", "no_recursive"} {
		delete(settings, key)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	return enc.Close()
}

// envOverrides returns the DUPE_* entries of environ, sorted.
func envOverrides(environ []string) []string {
	var out []string
	for _, kv := range environ {
		if strings.HasPrefix(kv, config.EnvPrefix+"_") {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if err != nil && !errors.Is(err, config.ErrConfigExists) {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", path, editor)

	editorCmd := exec.Command(editor, path) //nolint:gosec // editor comes from the user's environment
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	path, err := config.WriteDefault()
	if errors.Is(err, config.ErrConfigExists) {
		printInfo("Config file already exists: %s", path)
		printInfo("Use 'dupe config edit' to modify it.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", path)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	path := config.ConfigPath()
	if cfgFile != "" {
		path = cfgFile
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
