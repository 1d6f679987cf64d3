// Package output provides formatters for displaying duplicate groups in
// various output formats (pretty, plain, json, yaml, paths, etc.).
//
// The package uses a registry pattern to allow registration of multiple
// formatter implementations that can be selected at runtime.
//
// Basic usage:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/dupe/pkg/dupe/types"
)

// FileInfo describes one member of a duplicate group.
type FileInfo struct {
	// Path is the canonical path of the file.
	Path string `json:"path" yaml:"path"`

	// Name is the base name of the file.
	Name string `json:"name" yaml:"name"`

	// Dir is the directory containing the file.
	Dir string `json:"dir" yaml:"dir"`
}

// Group is a duplicate group prepared for display.
type Group struct {
	// Digest is the hex content digest shared by every member.
	Digest string `json:"digest" yaml:"digest"`

	// Size is the size of each member in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SizeHuman is the human-readable member size (e.g., "1.5 GiB").
	SizeHuman string `json:"size_human" yaml:"size_human"`

	// Wasted is the number of bytes held by all but one member.
	Wasted int64 `json:"wasted" yaml:"wasted"`

	// Files lists the members in display order.
	Files []FileInfo `json:"files" yaml:"files"`
}

// ScanStats contains statistics about a run.
type ScanStats struct {
	// DirsScanned is the number of directories listed.
	DirsScanned int64 `json:"dirs_scanned" yaml:"dirs_scanned"`

	// FilesScanned is the number of files enumerated.
	FilesScanned int `json:"files_scanned" yaml:"files_scanned"`

	// FilesHashed is the number of files successfully hashed.
	FilesHashed int `json:"files_hashed" yaml:"files_hashed"`

	// BytesHashed is the number of bytes read while hashing.
	BytesHashed int64 `json:"bytes_hashed" yaml:"bytes_hashed"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result contains the complete output data for formatting.
type Result struct {
	// Groups contains every duplicate group in digest order.
	Groups []Group `json:"groups" yaml:"groups"`

	// Stats contains run statistics.
	Stats ScanStats `json:"stats" yaml:"stats"`

	// Roots are the paths that were scanned.
	Roots []string `json:"roots" yaml:"roots"`

	// Algorithm names the content digest.
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// Warnings contains per-path errors that did not stop the run.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// Interrupted indicates the run was aborted and the groups are partial.
	Interrupted bool `json:"interrupted" yaml:"interrupted"`
}

// NewGroup converts a duplicate group for display.
func NewGroup(g types.DuplicateGroup) Group {
	files := make([]FileInfo, len(g.Paths))
	for i, p := range g.Paths {
		files[i] = FileInfo{
			Path: p,
			Name: filepath.Base(p),
			Dir:  filepath.Dir(p),
		}
	}
	return Group{
		Digest:    g.Digest.String(),
		Size:      g.Size,
		SizeHuman: types.FormatSize(g.Size),
		Wasted:    g.Wasted(),
		Files:     files,
	}
}

// NewGroups converts groups for display, keeping their order.
func NewGroups(groups []types.DuplicateGroup) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = NewGroup(g)
	}
	return out
}

// Warnings renders scan errors as warning lines.
func Warnings(errs []types.ScanError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Path + ": " + e.Error
	}
	return out
}

// TotalWasted returns the bytes reclaimable across all groups.
func (r *Result) TotalWasted() int64 {
	var total int64
	for _, g := range r.Groups {
		total += g.Wasted
	}
	return total
}

// TotalFiles returns the number of files that belong to some group.
func (r *Result) TotalFiles() int {
	var total int
	for _, g := range r.Groups {
		total += len(g.Files)
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
