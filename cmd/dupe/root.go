package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dupe/pkg/dupe/config"
	"github.com/jamesainslie/dupe/pkg/dupe/hasher"
	"github.com/jamesainslie/dupe/pkg/dupe/output"
)

var (
	cfgFile string

	// v holds the merged configuration: defaults, config file, DUPE_*
	// environment variables and bound flags, in increasing precedence.
	v = config.New()

	rootCmd = &cobra.Command{
		Use:   "dupe [path...]",
		Short: "Find duplicate files",
		Long: `Dupe walks one or more directory trees, hashes every file it finds and
reports groups of files with identical content.

By default, dupe shows live progress in an interactive TUI and lets you browse
the groups once the run completes. Use -n or any -o format other than pretty
for non-interactive output.

Examples:
  dupe                          # Scan the current directory
  dupe ~/Pictures /mnt/backup   # Compare two trees
  dupe -s 1M --no-recursive .   # Top level only, files of 1 MiB or more
  dupe -o json ~/Downloads      # JSON output
  dupe -o paths . | xargs ...   # One path per line, groups split by blank lines
  dupe list ~/Music             # Only enumerate, no hashing
  dupe config show              # Show configuration`,
		Args:              cobra.ArbitraryArgs,
		PersistentPreRunE: initializeLogging,
		RunE:              runScan,
		SilenceUsage:      true,
	}
)

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dupe/config.yaml)")
	pf.StringP("min-size", "s", "", "minimum file size (e.g., 4K, 10M)")
	pf.StringSliceP("exclude", "e", nil, "exclude glob patterns or path prefixes (can be specified multiple times)")
	pf.Bool("no-recursive", false, "only scan the top level of each path")
	pf.BoolP("follow-symlinks", "L", config.DefaultFollowSymlinks, "follow symbolic links (--follow-symlinks=false skips them)")
	pf.Int("dir-workers", 0, "directory listing workers (0=auto)")
	pf.BoolP("quiet", "q", false, "minimal output")
	pf.BoolP("verbose", "v", false, "debug output")

	// Scan flags
	f := rootCmd.Flags()
	f.IntP("workers", "w", 0, "hashing workers (0=auto, max 64)")
	f.Int("max-in-flight", 0, "outstanding tasks per stage (0=auto)")
	f.String("algorithm", "", algorithmUsage())
	f.String("chunk-size", "", "read size while hashing (e.g., 64K, 1M)")
	f.Duration("idle-timeout", 0, "abort when no progress is reported for this long (0=never)")
	f.StringP("output", "o", "", fmt.Sprintf("output format %v", output.Available()))
	f.String("template", "", "Go template for -o template")
	f.BoolP("no-interactive", "n", false, "disable TUI, use text output")

	bind := map[string]string{
		"min_size":        "min-size",
		"exclude":         "exclude",
		"no_recursive":    "no-recursive",
		"follow_symlinks": "follow-symlinks",
		"workers.dir":     "dir-workers",
		"quiet":           "quiet",
		"verbose":         "verbose",
	}
	for key, name := range bind {
		_ = v.BindPFlag(key, pf.Lookup(name))
	}

	bind = map[string]string{
		"workers.hash":    "workers",
		"max_in_flight":   "max-in-flight",
		"hash.algorithm":  "algorithm",
		"hash.chunk_size": "chunk-size",
		"idle_timeout":    "idle-timeout",
		"output":          "output",
		"template":        "template",
		"no_interactive":  "no-interactive",
	}
	for key, name := range bind {
		_ = v.BindPFlag(key, f.Lookup(name))
	}
}

// algorithmUsage lists the digests with their widths, e.g. "sha1 (160-bit)".
func algorithmUsage() string {
	names := make([]string, 0, len(hasher.Algorithms()))
	for _, a := range hasher.Algorithms() {
		names = append(names, fmt.Sprintf("%s (%d-bit)", a, a.Size()*8))
	}
	return "hash algorithm: " + strings.Join(names, ", ")
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return v.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return v.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr unless quiet mode is enabled.
// Results go to stdout so they can be piped.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
