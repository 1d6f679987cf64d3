package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dupe/pkg/dupe/engine"
	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

var listCmd = &cobra.Command{
	Use:   "list [path...]",
	Short: "List the files a scan would hash",
	Long: `Enumerate the given paths with the same filters as a scan and print every
file that would be hashed, sorted, one per line. Nothing is read or hashed.`,
	Args: cobra.ArbitraryArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolP("null", "0", false, "separate paths with NUL instead of newline")
	rootCmd.AddCommand(listCmd)
}

// runList prints the enumerated file set.
func runList(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args)
	if err != nil {
		return err
	}

	eng, err := engine.New(s.Engine)
	if err != nil {
		return err
	}
	res, err := eng.Enumerate(cmd.Context(), s.Roots, s.Engine.Recursive)
	if err != nil {
		return err
	}

	sep := byte('\n')
	if null, _ := cmd.Flags().GetBool("null"); null {
		sep = 0
	}

	w := bufio.NewWriter(os.Stdout)
	for _, path := range res.Files {
		_, _ = w.WriteString(path)
		_ = w.WriteByte(sep)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, e := range res.Errors {
		printInfo("skipped %s: %s", e.Path, e.Error)
	}
	printVerbose("%d files, %s, %d directories in %v",
		len(res.Files), types.FormatSize(res.Bytes), res.DirsScanned, res.Elapsed)
	return nil
}
