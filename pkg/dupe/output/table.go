package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// tableRecords flattens r into GROUP, SIZE, DIGEST, PATH records.
func tableRecords(r *Result) [][]string {
	var (
		records [][]string
		group   int
	)
	for _, row := range Rows(r) {
		switch row := row.(type) {
		case GroupRow:
			group = row.Index
		case FileRow:
			records = append(records, []string{
				strconv.Itoa(group),
				strconv.FormatInt(row.Group.Size, 10),
				row.Group.Digest,
				row.File.Path,
			})
		}
	}
	return records
}

var tableHeader = []string{"GROUP", "SIZE", "DIGEST", "PATH"}

// TSVFormatter formats output as tab-separated values.
// It produces a header row followed by one row per file.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteByte('\n')

	for _, rec := range tableRecords(r) {
		w.WriteString(strings.Join(rec, "\t"))
		w.WriteByte('\n')
	}

	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	if err := writer.WriteAll(tableRecords(r)); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
// Sizes are human-readable and digests abbreviated.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| GROUP | SIZE | DIGEST | PATH |\n")
	w.WriteString("|------:|-----:|--------|------|\n")

	var group int
	for _, row := range Rows(r) {
		switch row := row.(type) {
		case GroupRow:
			group = row.Index
		case FileRow:
			fmt.Fprintf(w, "| %d | %s | `%s` | %s |\n",
				group,
				escapeMarkdownPipe(row.Group.SizeHuman),
				shortDigest(row.Group.Digest),
				escapeMarkdownPipe(row.File.Path),
			)
		}
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
