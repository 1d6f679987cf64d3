package output

import (
	"bytes"
)

// PathsFormatter formats output as one file path per line with a blank line
// between groups, the layout fdupes uses. It is suitable for piping to other
// tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for i, g := range r.Groups {
		if i > 0 {
			w.WriteByte('\n')
		}
		for _, file := range g.Files {
			w.WriteString(file.Path)
			w.WriteByte('\n')
		}
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)

// NullFormatter formats output as null-delimited paths.
// Each path is followed by a null byte and each group by an extra null byte,
// so paths containing newlines survive xargs -0 and similar tools.
type NullFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NullFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, g := range r.Groups {
		for _, file := range g.Files {
			w.WriteString(file.Path)
			w.WriteByte(0)
		}
		w.WriteByte(0)
	}
	return nil
}

func init() {
	Register("null", func() Formatter {
		return &NullFormatter{}
	})
}

// Ensure NullFormatter implements Formatter.
var _ Formatter = (*NullFormatter)(nil)
