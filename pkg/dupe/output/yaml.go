package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Groups []yamlGroup `yaml:"groups"`
	Stats  yamlStats   `yaml:"stats"`
	Meta   yamlMeta    `yaml:"meta"`
}

// yamlGroup represents a duplicate group in YAML output.
type yamlGroup struct {
	Digest    string   `yaml:"digest"`
	Size      int64    `yaml:"size"`
	SizeHuman string   `yaml:"size_human"`
	Wasted    int64    `yaml:"wasted"`
	Paths     []string `yaml:"paths"`
}

// yamlStats represents run statistics in YAML output.
type yamlStats struct {
	DirsScanned  int64  `yaml:"dirs_scanned"`
	FilesScanned int    `yaml:"files_scanned"`
	FilesHashed  int    `yaml:"files_hashed"`
	BytesHashed  int64  `yaml:"bytes_hashed"`
	Duration     string `yaml:"duration"`
}

// yamlMeta represents metadata in YAML output.
type yamlMeta struct {
	Roots       []string `yaml:"roots"`
	Algorithm   string   `yaml:"algorithm"`
	TotalGroups int      `yaml:"total_groups"`
	TotalFiles  int      `yaml:"total_files"`
	TotalWasted int64    `yaml:"total_wasted"`
	Warnings    []string `yaml:"warnings,omitempty"`
	Interrupted bool     `yaml:"interrupted"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := f.buildOutput(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

// buildOutput converts Result to the YAML output structure.
func (f *YAMLFormatter) buildOutput(r *Result) yamlOutput {
	groups := make([]yamlGroup, len(r.Groups))
	for i, g := range r.Groups {
		paths := make([]string, len(g.Files))
		for j, file := range g.Files {
			paths[j] = file.Path
		}
		groups[i] = yamlGroup{
			Digest:    g.Digest,
			Size:      g.Size,
			SizeHuman: g.SizeHuman,
			Wasted:    g.Wasted,
			Paths:     paths,
		}
	}

	stats := yamlStats{
		DirsScanned:  r.Stats.DirsScanned,
		FilesScanned: r.Stats.FilesScanned,
		FilesHashed:  r.Stats.FilesHashed,
		BytesHashed:  r.Stats.BytesHashed,
		Duration:     formatDurationString(r.Stats.Duration),
	}

	meta := yamlMeta{
		Roots:       r.Roots,
		Algorithm:   r.Algorithm,
		TotalGroups: len(r.Groups),
		TotalFiles:  r.TotalFiles(),
		TotalWasted: r.TotalWasted(),
		Warnings:    r.Warnings,
		Interrupted: r.Interrupted,
	}

	return yamlOutput{
		Groups: groups,
		Stats:  stats,
		Meta:   meta,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
