package output

import (
	"bytes"
	"encoding/json"
	"time"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Groups []jsonGroup `json:"groups"`
	Stats  jsonStats   `json:"stats"`
	Meta   jsonMeta    `json:"meta"`
}

// jsonGroup represents a duplicate group in JSON output.
type jsonGroup struct {
	Digest    string   `json:"digest"`
	Size      int64    `json:"size"`
	SizeHuman string   `json:"size_human"`
	Wasted    int64    `json:"wasted"`
	Paths     []string `json:"paths"`
}

// jsonStats represents run statistics in JSON output.
type jsonStats struct {
	DirsScanned  int64  `json:"dirs_scanned"`
	FilesScanned int    `json:"files_scanned"`
	FilesHashed  int    `json:"files_hashed"`
	BytesHashed  int64  `json:"bytes_hashed"`
	Duration     string `json:"duration"`
}

// jsonMeta represents metadata in JSON output.
type jsonMeta struct {
	Roots       []string `json:"roots"`
	Algorithm   string   `json:"algorithm"`
	TotalGroups int      `json:"total_groups"`
	TotalFiles  int      `json:"total_files"`
	TotalWasted int64    `json:"total_wasted"`
	Warnings    []string `json:"warnings,omitempty"`
	Interrupted bool     `json:"interrupted"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with groups, stats, and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// buildOutput converts Result to the JSON output structure.
func (f *JSONFormatter) buildOutput(r *Result) jsonOutput {
	groups := make([]jsonGroup, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = newJSONGroup(g)
	}

	stats := jsonStats{
		DirsScanned:  r.Stats.DirsScanned,
		FilesScanned: r.Stats.FilesScanned,
		FilesHashed:  r.Stats.FilesHashed,
		BytesHashed:  r.Stats.BytesHashed,
		Duration:     formatDurationString(r.Stats.Duration),
	}

	meta := jsonMeta{
		Roots:       r.Roots,
		Algorithm:   r.Algorithm,
		TotalGroups: len(r.Groups),
		TotalFiles:  r.TotalFiles(),
		TotalWasted: r.TotalWasted(),
		Warnings:    r.Warnings,
		Interrupted: r.Interrupted,
	}

	return jsonOutput{
		Groups: groups,
		Stats:  stats,
		Meta:   meta,
	}
}

func newJSONGroup(g Group) jsonGroup {
	paths := make([]string, len(g.Files))
	for i, file := range g.Files {
		paths[i] = file.Path
	}
	return jsonGroup{
		Digest:    g.Digest,
		Size:      g.Size,
		SizeHuman: g.SizeHuman,
		Wasted:    g.Wasted,
		Paths:     paths,
	}
}

// formatDurationString formats a duration as a string for JSON output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON (one object per line).
// Each group is written as a compact JSON object on its own line.
// This format is suitable for streaming processing with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, g := range r.Groups {
		data, err := json.Marshal(newJSONGroup(g))
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
