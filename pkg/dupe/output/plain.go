package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as an aligned table with one row per file.
// The GROUP column repeats the group number so lines can be filtered
// independently. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("GROUP\tSIZE\tDIGEST\tPATH\n")); err != nil {
		return err
	}

	var group int
	for _, row := range Rows(r) {
		switch row := row.(type) {
		case GroupRow:
			group = row.Index
		case FileRow:
			_, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
				group, row.Group.SizeHuman, shortDigest(row.Group.Digest), row.File.Path)
			if err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

// shortDigest abbreviates a hex digest for tabular display.
func shortDigest(d string) string {
	const n = 12
	if len(d) <= n {
		return d
	}
	return d[:n]
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
